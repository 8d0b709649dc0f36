package workflow

import (
	"go.uber.org/zap"

	"github.com/viant/approval/service/notify"
	"github.com/viant/approval/service/store"
)

// Option customises the engine service.
type Option func(s *Service)

// WithRequests sets the request store.
func WithRequests(requests store.Requests) Option {
	return func(s *Service) { s.requests = requests }
}

// WithRecipients sets the recipient store.
func WithRecipients(recipients store.Recipients) Option {
	return func(s *Service) { s.recipients = recipients }
}

// WithAudits sets the audit store.
func WithAudits(audits store.Audits) Option {
	return func(s *Service) { s.audits = audits }
}

// WithDirectory sets the document/user directory.
func WithDirectory(directory store.Directory) Option {
	return func(s *Service) { s.directory = directory }
}

// WithDispatcher sets the notification dispatcher; when absent the engine
// simply skips its best-effort notifications.
func WithDispatcher(dispatcher notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = dispatcher }
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}
