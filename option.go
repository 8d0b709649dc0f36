package approval

import (
	"go.uber.org/zap"

	"github.com/viant/approval/service/notify"
	"github.com/viant/approval/service/store"
)

// Option customises the composition root.
type Option func(*Service)

// WithConfig supplies the runtime configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger overrides the default production logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRequests overrides the request store selected by the configuration.
func WithRequests(requests store.Requests) Option {
	return func(s *Service) { s.requests = requests }
}

// WithRecipients overrides the recipient store selected by the configuration.
func WithRecipients(recipients store.Recipients) Option {
	return func(s *Service) { s.recipients = recipients }
}

// WithAudits overrides the audit store selected by the configuration.
func WithAudits(audits store.Audits) Option {
	return func(s *Service) { s.audits = audits }
}

// WithDirectory supplies the document and user directory. Without it an
// empty in-memory directory is used, which every application will want to
// replace or seed.
func WithDirectory(directory store.Directory) Option {
	return func(s *Service) { s.directory = directory }
}

// WithDispatcher replaces the default queue-backed notification dispatcher
// with a direct one.
func WithDispatcher(dispatcher notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = dispatcher }
}
