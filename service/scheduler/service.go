package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/service/store"
	"github.com/viant/approval/service/workflow"
	"github.com/viant/approval/tracing"
)

// task is a single schedulable job. It returns the number of items it
// touched and a human-readable summary.
type task func(ctx context.Context) (int, string, error)

// Service runs the background jobs of the approval workflow on their
// configured schedule. It owns no business rules: the jobs delegate to the
// workflow engine and the stores.
type Service struct {
	config     *Config
	engine     *workflow.Service
	requests   store.Requests
	audits     store.Audits
	logger     *zap.Logger
	pollPeriod time.Duration

	tasks map[string]task

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	workers chan struct{}
	lastRun map[string]time.Time
	status  map[string]*TaskStatus
}

// Option customises the scheduler service.
type Option func(*Service)

// WithConfig overrides the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithEngine sets the workflow engine the jobs delegate to.
func WithEngine(engine *workflow.Service) Option {
	return func(s *Service) { s.engine = engine }
}

// WithRequests sets the request store used by the statistics job.
func WithRequests(requests store.Requests) Option {
	return func(s *Service) { s.requests = requests }
}

// WithAudits sets the audit store used by the retention job.
func WithAudits(audits store.Audits) Option {
	return func(s *Service) { s.audits = audits }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPollPeriod overrides how often the schedule is checked.
func WithPollPeriod(period time.Duration) Option {
	return func(s *Service) { s.pollPeriod = period }
}

// New creates a scheduler; the engine, request store and audit store are
// required.
func New(options ...Option) (*Service, error) {
	s := &Service{
		pollPeriod: time.Minute,
		lastRun:    make(map[string]time.Time),
		status:     make(map[string]*TaskStatus),
	}
	for _, option := range options {
		option(s)
	}
	if s.engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if s.requests == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if s.audits == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	s.workers = make(chan struct{}, s.config.MaxWorkers)
	s.tasks = map[string]task{
		TaskApprovalReminders:       s.sendApprovalReminders,
		TaskExpireTokens:            s.cleanupExpiredTokens,
		TaskExpireOverdue:           s.expireOverdueApprovals,
		TaskCompletionNotifications: s.sendDelayedCompletionNotifications,
		TaskWeeklyStatistics:        s.generateWeeklyStatistics,
		TaskAuditCleanup:            s.cleanupOldAuditLogs,
	}
	return s, nil
}

// Start launches the polling loop. It is idempotent and reports whether the
// scheduler was already running.
func (s *Service) Start(ctx context.Context) (alreadyRunning bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return true
	}
	if !s.config.Enabled {
		s.logger.Info("scheduler disabled by configuration")
		return false
	}
	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	s.running = true
	// a fresh scheduler treats every interval task as just run so a restart
	// does not fire everything at once
	now := clock.Now()
	for name := range s.tasks {
		if _, ok := s.lastRun[name]; !ok {
			s.lastRun[name] = now
		}
	}
	go s.loop(ctx, done)
	s.logger.Info("scheduler started",
		zap.Int("maxWorkers", s.config.MaxWorkers),
		zap.Duration("pollPeriod", s.pollPeriod))
	return false
}

// Stop halts the polling loop and waits for in-flight jobs to finish. It is
// idempotent and reports whether the scheduler was running.
func (s *Service) Stop() (wasRunning bool) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
	return true
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(done)
	}()
	ticker := time.NewTicker(s.pollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx, &wg)
		}
	}
}

func (s *Service) dispatchDue(ctx context.Context, wg *sync.WaitGroup) {
	now := clock.Now()
	for _, name := range TaskNames {
		taskConfig, ok := s.config.Tasks[name]
		if !ok {
			continue
		}
		s.mu.Lock()
		lastRun := s.lastRun[name]
		due := taskConfig.due(lastRun, now)
		if due {
			s.lastRun[name] = now
		}
		s.mu.Unlock()
		if !due {
			continue
		}
		// the slot is acquired inside the worker so a saturated pool never
		// stalls the polling loop
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			select {
			case s.workers <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-s.workers }()
			s.safeRun(ctx, name)
		}(name)
	}
}

// safeRun executes one job with the configured timeout, converting panics
// into recorded failures so a broken job never kills the loop.
func (s *Service) safeRun(ctx context.Context, name string) (result *RunResult) {
	run, ok := s.tasks[name]
	if !ok {
		return &RunResult{
			Task:    name,
			Message: fmt.Sprintf("unknown task %q, valid tasks: %s", name, strings.Join(TaskNames, ", ")),
		}
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.TaskTimeout())
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, "scheduler."+name, "INTERNAL")

	started := clock.Now()
	result = &RunResult{Task: name}
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Error = fmt.Sprintf("panic: %v", recovered)
		}
		result.Duration = clock.Now().Sub(started)
		var err error
		if result.Error != "" {
			err = fmt.Errorf("%s", result.Error)
		}
		tracing.EndSpan(span, err)
		s.record(name, started, result)
	}()

	items, message, err := run(ctx)
	result.Items = items
	result.Message = message
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

func (s *Service) record(name string, started time.Time, result *RunResult) {
	s.mu.Lock()
	status, ok := s.status[name]
	if !ok {
		status = &TaskStatus{Name: name}
		s.status[name] = status
	}
	status.Runs++
	status.LastRun = started
	status.LastDuration = result.Duration
	status.LastError = result.Error
	if result.Success {
		status.ConsecutiveErrors = 0
	} else {
		status.Failures++
		status.ConsecutiveErrors++
	}
	consecutive := status.ConsecutiveErrors
	s.mu.Unlock()

	if result.Success {
		s.logger.Info("task completed",
			zap.String("task", name),
			zap.Int("items", result.Items),
			zap.Duration("duration", result.Duration))
		return
	}
	s.logger.Error("task failed",
		zap.String("task", name),
		zap.String("error", result.Error),
		zap.Int("consecutiveErrors", consecutive),
		zap.Duration("duration", result.Duration))
}

// RunTaskNow executes a single job immediately, outside its schedule, and
// returns the structured outcome. Unknown names are reported in the result
// rather than as an error so callers can surface the valid task list.
func (s *Service) RunTaskNow(ctx context.Context, name string) *RunResult {
	result := s.safeRun(ctx, name)
	s.mu.Lock()
	s.lastRun[name] = clock.Now()
	s.mu.Unlock()
	return result
}

// Running reports whether the polling loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// StatusSnapshot returns a point-in-time view of the scheduler and its
// tasks.
func (s *Service) StatusSnapshot() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := clock.Now()
	ret := &Status{
		Running:    s.running,
		MaxWorkers: s.config.MaxWorkers,
		Tasks:      make([]TaskStatus, 0, len(TaskNames)),
	}
	for _, name := range TaskNames {
		taskConfig, configured := s.config.Tasks[name]
		if !configured {
			continue
		}
		ret.ConfiguredTasks++
		if taskConfig.Enabled {
			ret.EnabledTasks++
		}
		entry := TaskStatus{Name: name}
		if status, ok := s.status[name]; ok {
			entry = *status
		}
		entry.Enabled = taskConfig.Enabled
		entry.Interval = taskConfig.Interval()
		entry.Description = taskConfig.Description
		if s.running {
			entry.NextRun = taskConfig.next(s.lastRun[name], now)
		}
		ret.Tasks = append(ret.Tasks, entry)
	}
	return ret
}
