package memory

import (
	"context"
	"sort"
	"time"

	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	"github.com/viant/approval/service/dao/store"
	astore "github.com/viant/approval/service/store"
)

// Requests is an in-memory request store backed by the generic snapshot
// store; finders scan the snapshot under the store's read lock.
type Requests struct {
	*store.MemoryStore[string, model.Request]
}

// NewRequests creates an empty in-memory request store.
func NewRequests() *Requests {
	return &Requests{
		MemoryStore: store.NewMemoryStore[string, model.Request](
			func(r *model.Request) string { return r.ID },
			(*model.Request).Clone,
		),
	}
}

func (s *Requests) Save(ctx context.Context, r *model.Request) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	return s.MemoryStore.Save(ctx, r)
}

func (s *Requests) PendingByDocument(ctx context.Context, documentID string) (*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.DocumentID == documentID && r.Status == model.RequestPending {
			return r, nil
		}
	}
	return nil, nil
}

func (s *Requests) ListByRequester(ctx context.Context, requesterID string, status model.RequestStatus, limit, offset int) ([]*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*model.Request
	for _, r := range all {
		if r.RequesterID != requesterID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Requests) ListOverdue(ctx context.Context, now time.Time) ([]*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Request
	for _, r := range all {
		if r.Status == model.RequestPending && r.Overdue(now) {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

func (s *Requests) ListExpiringPending(ctx context.Context, cutoff time.Time) ([]*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Request
	for _, r := range all {
		if r.Status != model.RequestPending || r.ExpiresAt == nil {
			continue
		}
		if !r.ExpiresAt.After(cutoff) {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

func (s *Requests) ListUnnotifiedResolved(ctx context.Context) ([]*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Request
	for _, r := range all {
		if r.CompletionNotifiedAt != nil || r.CompletedAt == nil {
			continue
		}
		if r.Status == model.RequestApproved || r.Status == model.RequestRejected {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

func (s *Requests) ListTerminalOlderThan(ctx context.Context, now, cutoff time.Time) ([]*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Request
	for _, r := range all {
		if r.Status != model.RequestExpired && r.Status != model.RequestRejected {
			continue
		}
		if r.Overdue(now) && r.CreatedAt.Before(cutoff) {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

func (s *Requests) CreatedBetween(ctx context.Context, from, to time.Time) ([]*model.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Request
	for _, r := range all {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

var _ astore.Requests = (*Requests)(nil)
