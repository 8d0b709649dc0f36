package fs

import (
	"context"
	"sort"
	"strings"

	"github.com/viant/afs"

	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	astore "github.com/viant/approval/service/store"
)

// Recipients is a filesystem-backed recipient store.
type Recipients struct {
	records *collection[model.Recipient]
}

// NewRecipients creates a recipient store rooted at basePath.
func NewRecipients(basePath string) (*Recipients, error) {
	records, err := newCollection[model.Recipient](afs.New(), basePath, func(r *model.Recipient) string { return r.ID })
	if err != nil {
		return nil, err
	}
	return &Recipients{records: records}, nil
}

func (s *Recipients) Save(ctx context.Context, r *model.Recipient) error {
	return s.records.save(ctx, r)
}

func (s *Recipients) Load(ctx context.Context, id string) (*model.Recipient, error) {
	return s.records.load(ctx, id)
}

func (s *Recipients) Delete(ctx context.Context, id string) error {
	return s.records.remove(ctx, id)
}

func (s *Recipients) List(ctx context.Context, _ ...*dao.Parameter) ([]*model.Recipient, error) {
	return s.records.list(ctx)
}

func (s *Recipients) FindByToken(ctx context.Context, token string) (*model.Recipient, error) {
	if token == "" {
		return nil, dao.ErrInvalidID
	}
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
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
	all, err := s.records.list(ctx)
	if err != nil {
		return err
	}
	for _, r := range all {
		if r.RequestID == requestID {
			if err := s.records.remove(ctx, r.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ astore.Recipients = (*Recipients)(nil)
