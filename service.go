package approval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/viant/approval/service/messaging"
	memoryqueue "github.com/viant/approval/service/messaging/memory"
	"github.com/viant/approval/service/notify"
	queuenotify "github.com/viant/approval/service/notify/queue"
	"github.com/viant/approval/service/scheduler"
	"github.com/viant/approval/service/store"
	storefs "github.com/viant/approval/service/store/fs"
	storememory "github.com/viant/approval/service/store/memory"
	"github.com/viant/approval/service/workflow"
	"github.com/viant/approval/tracing"
)

// Service is the composition root: it assembles the stores, the workflow
// engine, the notification dispatcher and the background scheduler from a
// single configuration, and owns their lifecycle.
type Service struct {
	config     *Config
	logger     *zap.Logger
	requests   store.Requests
	recipients store.Recipients
	audits     store.Audits
	directory  store.Directory
	dispatcher notify.Dispatcher

	// notifications is set only when the default queue-backed dispatcher is
	// in use; embedding applications consume it to deliver mail.
	notifications *memoryqueue.Queue[queuenotify.Envelope]

	engine    *workflow.Service
	scheduler *scheduler.Service
}

// New assembles a ready-to-start service. Without options everything runs
// in memory with the built-in schedule.
func New(ctx context.Context, options ...Option) (*Service, error) {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
		s.logger = logger
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Init("approval", "1.0", s.config.Tracing.OutputFile); err != nil {
			return nil, fmt.Errorf("failed to initialise tracing: %w", err)
		}
	}
	if err := s.ensureStores(); err != nil {
		return nil, err
	}
	if s.directory == nil {
		s.directory = storememory.NewDirectory()
	}
	if s.dispatcher == nil {
		s.notifications = memoryqueue.NewQueue[queuenotify.Envelope](memoryqueue.DefaultConfig())
		s.dispatcher = queuenotify.New(s.notifications, s.logger)
	}

	var err error
	s.engine, err = workflow.New(
		workflow.WithRequests(s.requests),
		workflow.WithRecipients(s.recipients),
		workflow.WithAudits(s.audits),
		workflow.WithDirectory(s.directory),
		workflow.WithDispatcher(s.dispatcher),
		workflow.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	schedulerConfig := s.config.Scheduler
	if schedulerConfig == nil {
		schedulerConfig = scheduler.LoadConfig(ctx, s.config.SchedulerConfigURL, s.logger)
	}
	s.scheduler, err = scheduler.New(
		scheduler.WithConfig(schedulerConfig),
		scheduler.WithEngine(s.engine),
		scheduler.WithRequests(s.requests),
		scheduler.WithAudits(s.audits),
		scheduler.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) ensureStores() error {
	baseURL := s.config.Store.BaseURL
	if s.requests == nil {
		if baseURL == "" {
			s.requests = storememory.NewRequests()
		} else {
			requests, err := storefs.NewRequests(baseURL + "/requests")
			if err != nil {
				return err
			}
			s.requests = requests
		}
	}
	if s.recipients == nil {
		if baseURL == "" {
			s.recipients = storememory.NewRecipients()
		} else {
			recipients, err := storefs.NewRecipients(baseURL + "/recipients")
			if err != nil {
				return err
			}
			s.recipients = recipients
		}
	}
	if s.audits == nil {
		if baseURL == "" {
			s.audits = storememory.NewAudits()
		} else {
			audits, err := storefs.NewAudits(baseURL + "/audits")
			if err != nil {
				return err
			}
			s.audits = audits
		}
	}
	return nil
}

// Engine returns the workflow engine.
func (s *Service) Engine() *workflow.Service {
	return s.engine
}

// Scheduler returns the background scheduler.
func (s *Service) Scheduler() *scheduler.Service {
	return s.scheduler
}

// Directory returns the document and user directory in use.
func (s *Service) Directory() store.Directory {
	return s.directory
}

// Notifications returns the queue carrying outbound notifications, or nil
// when a custom dispatcher was supplied.
func (s *Service) Notifications() messaging.Queue[queuenotify.Envelope] {
	if s.notifications == nil {
		return nil
	}
	return s.notifications
}

// Start launches the background scheduler.
func (s *Service) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
}

// Shutdown stops the scheduler, waiting for in-flight jobs, and flushes the
// logger.
func (s *Service) Shutdown() {
	s.scheduler.Stop()
	_ = s.logger.Sync()
}
