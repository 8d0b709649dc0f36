package fs

import (
	"context"
	"sort"
	"time"

	"github.com/viant/afs"

	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	astore "github.com/viant/approval/service/store"
)

// Requests is a filesystem-backed request store.
type Requests struct {
	records *collection[model.Request]
}

// NewRequests creates a request store rooted at basePath.
func NewRequests(basePath string) (*Requests, error) {
	records, err := newCollection[model.Request](afs.New(), basePath, func(r *model.Request) string { return r.ID })
	if err != nil {
		return nil, err
	}
	return &Requests{records: records}, nil
}

func (s *Requests) Save(ctx context.Context, r *model.Request) error {
	return s.records.save(ctx, r)
}

func (s *Requests) Load(ctx context.Context, id string) (*model.Request, error) {
	return s.records.load(ctx, id)
}

func (s *Requests) Delete(ctx context.Context, id string) error {
	return s.records.remove(ctx, id)
}

func (s *Requests) List(ctx context.Context, _ ...*dao.Parameter) ([]*model.Request, error) {
	return s.records.list(ctx)
}

func (s *Requests) PendingByDocument(ctx context.Context, documentID string) (*model.Request, error) {
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
