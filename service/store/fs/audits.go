package fs

import (
	"context"
	"sort"
	"time"

	"github.com/viant/afs"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/internal/idgen"
	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	astore "github.com/viant/approval/service/store"
)

// Audits is a filesystem-backed append-only audit store.
type Audits struct {
	records *collection[model.AuditLog]
}

// NewAudits creates an audit store rooted at basePath.
func NewAudits(basePath string) (*Audits, error) {
	records, err := newCollection[model.AuditLog](afs.New(), basePath, func(a *model.AuditLog) string { return a.ID })
	if err != nil {
		return nil, err
	}
	return &Audits{records: records}, nil
}

func (s *Audits) Append(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.ID == "" {
		entry.ID = idgen.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = clock.Now()
	}
	return s.records.save(ctx, entry)
}

func (s *Audits) ListByRequest(ctx context.Context, requestID string) ([]*model.AuditLog, error) {
	all, err := s.records.list(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*model.AuditLog
	for _, a := range all {
		if a.RequestID == requestID {
			ret = append(ret, a)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].CreatedAt.Before(ret[j].CreatedAt) })
	return ret, nil
}

func (s *Audits) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	all, err := s.records.list(ctx)
	if err != nil {
		return 0, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	deleted := 0
	for _, a := range all {
		if !a.CreatedAt.Before(cutoff) {
			break
		}
		if limit > 0 && deleted >= limit {
			break
		}
		if err := s.records.remove(ctx, a.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

var _ astore.Audits = (*Audits)(nil)
