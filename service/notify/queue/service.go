package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/service/messaging"
	"github.com/viant/approval/service/notify"
)

// Envelope is the wire form of a notification handed to delivery workers
// (SMTP relay, web-hook fan-out) consuming the queue.
type Envelope struct {
	Kind      notify.Kind    `json:"kind"`
	Data      notify.Context `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Service publishes notifications onto a messaging queue instead of
// delivering them in-process. Publish failure reports false like any other
// dispatch failure.
type Service struct {
	queue  messaging.Queue[Envelope]
	logger *zap.Logger
}

// New creates a queue-backed dispatcher.
func New(queue messaging.Queue[Envelope], logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{queue: queue, logger: logger}
}

// Send publishes the notification envelope.
func (s *Service) Send(ctx context.Context, kind notify.Kind, data notify.Context) bool {
	envelope := &Envelope{Kind: kind, Data: data, CreatedAt: clock.Now()}
	if err := s.queue.Publish(ctx, envelope); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.String("kind", string(kind)), zap.Error(err))
		return false
	}
	return true
}

var _ notify.Dispatcher = (*Service)(nil)
