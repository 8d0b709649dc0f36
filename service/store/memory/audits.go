package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/internal/idgen"
	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	"github.com/viant/approval/service/dao/store"
	astore "github.com/viant/approval/service/store"
)

// Audits is an in-memory append-only audit store. Insertion order is kept so
// a trail reads back in the order its entries were emitted even when several
// entries share a timestamp.
type Audits struct {
	entries *store.MemoryStore[string, model.AuditLog]
	mu      sync.Mutex
	order   []string
}

// NewAudits creates an empty in-memory audit store.
func NewAudits() *Audits {
	return &Audits{
		entries: store.NewMemoryStore[string, model.AuditLog](
			func(a *model.AuditLog) string { return a.ID },
			(*model.AuditLog).Clone,
		),
	}
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
	if err := s.entries.Save(ctx, entry); err != nil {
		return err
	}
	s.mu.Lock()
	s.order = append(s.order, entry.ID)
	s.mu.Unlock()
	return nil
}

func (s *Audits) ListByRequest(ctx context.Context, requestID string) ([]*model.AuditLog, error) {
	var ret []*model.AuditLog
	for _, id := range s.orderedIDs() {
		entry, err := s.entries.Load(ctx, id)
		if err != nil {
			continue
		}
		if entry.RequestID == requestID {
			ret = append(ret, entry)
		}
	}
	return ret, nil
}

func (s *Audits) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	deleted := 0
	for _, id := range s.orderedIDs() {
		entry, err := s.entries.Load(ctx, id)
		if err != nil {
			continue
		}
		if !entry.CreatedAt.Before(cutoff) {
			continue
		}
		if limit > 0 && deleted >= limit {
			break
		}
		if err := s.entries.Delete(ctx, id); err != nil {
			return deleted, err
		}
		s.forget(id)
		deleted++
	}
	return deleted, nil
}

func (s *Audits) orderedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]string, len(s.order))
	copy(ret, s.order)
	return ret
}

func (s *Audits) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

var _ astore.Audits = (*Audits)(nil)
