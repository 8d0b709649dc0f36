package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	"github.com/viant/approval/service/dao/store"
	astore "github.com/viant/approval/service/store"
)

// Recipients is an in-memory recipient store.
type Recipients struct {
	*store.MemoryStore[string, model.Recipient]
}

// NewRecipients creates an empty in-memory recipient store.
func NewRecipients() *Recipients {
	return &Recipients{
		MemoryStore: store.NewMemoryStore[string, model.Recipient](
			func(r *model.Recipient) string { return r.ID },
			(*model.Recipient).Clone,
		),
	}
}

func (s *Recipients) Save(ctx context.Context, r *model.Recipient) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	return s.MemoryStore.Save(ctx, r)
}

func (s *Recipients) FindByToken(ctx context.Context, token string) (*model.Recipient, error) {
	if token == "" {
		return nil, dao.ErrInvalidID
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.Token == token {
			return r, nil
		}
	}
	return nil, dao.ErrNotFound
}

func (s *Recipients) ListByRequest(ctx context.Context, requestID string) ([]*model.Recipient, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Recipient
	for _, r := range all {
		if r.RequestID == requestID {
			ret = append(ret, r)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Email < ret[j].Email })
	return ret, nil
}

func (s *Recipients) ListPendingByEmail(ctx context.Context, email string) ([]*model.Recipient, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.Recipient
	for _, r := range all {
		if strings.EqualFold(r.Email, email) && r.Status == model.RecipientPending {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

func (s *Recipients) DeleteByRequest(ctx context.Context, requestID string) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range all {
		if r.RequestID == requestID {
			if err := s.MemoryStore.Delete(ctx, r.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ astore.Recipients = (*Recipients)(nil)
