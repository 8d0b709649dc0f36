package memory

import (
	"context"
	"sync"

	"github.com/viant/approval/service/notify"
)

// Sent records a single dispatched notification.
type Sent struct {
	Kind notify.Kind
	Data notify.Context
}

// Service is an in-memory capturing dispatcher used in tests and local
// runs. Delivery outcomes can be forced per kind via Fail.
type Service struct {
	mu       sync.Mutex
	sent     []Sent
	failing  map[notify.Kind]bool
	failNext bool
}

// New creates a capturing dispatcher.
func New() *Service {
	return &Service{failing: make(map[notify.Kind]bool)}
}

// Fail forces every subsequent Send of the given kind to report failure.
func (s *Service) Fail(kind notify.Kind, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[kind] = fail
}

// FailNext forces only the next Send to report failure.
func (s *Service) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// Send records the notification and reports the configured outcome.
func (s *Service) Send(_ context.Context, kind notify.Kind, data notify.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return false
	}
	if s.failing[kind] {
		return false
	}
	s.sent = append(s.sent, Sent{Kind: kind, Data: data})
	return true
}

// Messages returns a copy of everything dispatched so far.
func (s *Service) Messages() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Sent, len(s.sent))
	copy(ret, s.sent)
	return ret
}

// MessagesOf returns dispatched notifications of one kind.
func (s *Service) MessagesOf(kind notify.Kind) []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []Sent
	for _, m := range s.sent {
		if m.Kind == kind {
			ret = append(ret, m)
		}
	}
	return ret
}

var _ notify.Dispatcher = (*Service)(nil)
