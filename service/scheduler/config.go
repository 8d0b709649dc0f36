package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viant/afs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Task names. RunTaskNow and the configuration file refer to jobs by these.
const (
	TaskApprovalReminders       = "approval_reminders"
	TaskExpireTokens            = "expire_tokens"
	TaskExpireOverdue           = "expire_overdue"
	TaskCompletionNotifications = "completion_notifications"
	TaskWeeklyStatistics        = "weekly_statistics"
	TaskAuditCleanup            = "audit_cleanup"
)

// TaskNames lists every known task in a stable order.
var TaskNames = []string{
	TaskApprovalReminders,
	TaskExpireTokens,
	TaskExpireOverdue,
	TaskCompletionNotifications,
	TaskWeeklyStatistics,
	TaskAuditCleanup,
}

// Interval types accepted by TaskConfig.IntervalType.
const (
	IntervalMinutes = "minutes"
	IntervalHours   = "hours"
	IntervalDaily   = "daily"
	IntervalWeekly  = "weekly"
)

// TaskConfig describes when a single job runs.
type TaskConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalType  string `yaml:"interval_type"`
	IntervalValue int    `yaml:"interval_value,omitempty"`
	// TimeAt is the HH:MM wall-clock time for daily and weekly tasks.
	TimeAt string `yaml:"time_at,omitempty"`
	// Weekday applies to weekly tasks only.
	Weekday     string `yaml:"weekday,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Config holds the scheduler settings: global knobs plus per-task timing.
type Config struct {
	Enabled            bool `yaml:"enabled"`
	MaxWorkers         int  `yaml:"max_workers"`
	TaskTimeoutMinutes int  `yaml:"task_timeout_minutes"`

	ReminderDaysBeforeExpiry int `yaml:"reminder_days_before_expiry"`
	ReminderMinIntervalHours int `yaml:"reminder_min_interval_hours"`
	ExpiredTokensCleanupDays int `yaml:"expired_tokens_cleanup_days"`
	AuditLogsRetentionDays   int `yaml:"audit_logs_retention_days"`
	AuditCleanupBatchSize    int `yaml:"audit_cleanup_batch_size"`

	Tasks map[string]TaskConfig `yaml:"tasks"`
}

// DefaultConfig returns the built-in schedule. It is also the fallback when
// a configuration file is absent or malformed.
func DefaultConfig() *Config {
	return &Config{
		Enabled:                  true,
		MaxWorkers:               3,
		TaskTimeoutMinutes:       10,
		ReminderDaysBeforeExpiry: 2,
		ReminderMinIntervalHours: 12,
		ExpiredTokensCleanupDays: 7,
		AuditLogsRetentionDays:   60,
		AuditCleanupBatchSize:    500,
		Tasks: map[string]TaskConfig{
			TaskApprovalReminders: {
				Enabled:       true,
				IntervalType:  IntervalHours,
				IntervalValue: 2,
				Description:   "remind pending recipients of requests about to expire",
			},
			TaskExpireTokens: {
				Enabled:      true,
				IntervalType: IntervalDaily,
				TimeAt:       "01:30",
				Description:  "blank token material on old terminal requests",
			},
			TaskExpireOverdue: {
				Enabled:       true,
				IntervalType:  IntervalMinutes,
				IntervalValue: 20,
				Description:   "expire approval requests past their deadline",
			},
			TaskCompletionNotifications: {
				Enabled:       true,
				IntervalType:  IntervalMinutes,
				IntervalValue: 10,
				Description:   "retry completion notices that failed at resolution time",
			},
			TaskWeeklyStatistics: {
				Enabled:      true,
				IntervalType: IntervalWeekly,
				TimeAt:       "08:30",
				Weekday:      "monday",
				Description:  "aggregate last week's approval activity",
			},
			TaskAuditCleanup: {
				Enabled:      true,
				IntervalType: IntervalDaily,
				TimeAt:       "02:30",
				Description:  "purge audit entries past the retention window",
			},
		},
	}
}

// LoadConfig reads a YAML configuration from the given URL (any scheme afs
// understands: file, mem, s3, gs). A missing or malformed file falls back to
// DefaultConfig so a broken deploy never silences the schedule.
func LoadConfig(ctx context.Context, URL string, logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	if URL == "" {
		return DefaultConfig()
	}
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		logger.Warn("scheduler config not readable, using defaults",
			zap.String("url", URL), zap.Error(err))
		return DefaultConfig()
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		logger.Warn("scheduler config not parsable, using defaults",
			zap.String("url", URL), zap.Error(err))
		return DefaultConfig()
	}
	config.normalize()
	return config
}

// normalize fills gaps with defaults so a partial file only overrides what
// it mentions.
func (c *Config) normalize() {
	defaults := DefaultConfig()
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaults.MaxWorkers
	}
	if c.TaskTimeoutMinutes <= 0 {
		c.TaskTimeoutMinutes = defaults.TaskTimeoutMinutes
	}
	if c.ReminderDaysBeforeExpiry <= 0 {
		c.ReminderDaysBeforeExpiry = defaults.ReminderDaysBeforeExpiry
	}
	if c.ReminderMinIntervalHours <= 0 {
		c.ReminderMinIntervalHours = defaults.ReminderMinIntervalHours
	}
	if c.ExpiredTokensCleanupDays <= 0 {
		c.ExpiredTokensCleanupDays = defaults.ExpiredTokensCleanupDays
	}
	if c.AuditLogsRetentionDays <= 0 {
		c.AuditLogsRetentionDays = defaults.AuditLogsRetentionDays
	}
	if c.AuditCleanupBatchSize <= 0 {
		c.AuditCleanupBatchSize = defaults.AuditCleanupBatchSize
	}
	if c.Tasks == nil {
		c.Tasks = map[string]TaskConfig{}
	}
	for name, task := range defaults.Tasks {
		if _, ok := c.Tasks[name]; !ok {
			c.Tasks[name] = task
		}
	}
}

// Validate rejects unknown tasks and malformed timing settings.
func (c *Config) Validate() error {
	known := map[string]bool{}
	for _, name := range TaskNames {
		known[name] = true
	}
	for name, task := range c.Tasks {
		if !known[name] {
			return fmt.Errorf("unknown task %q, valid tasks: %s", name, strings.Join(TaskNames, ", "))
		}
		switch task.IntervalType {
		case IntervalMinutes, IntervalHours:
			if task.IntervalValue <= 0 {
				return fmt.Errorf("task %q: %s interval requires a positive interval_value", name, task.IntervalType)
			}
		case IntervalDaily, IntervalWeekly:
			if _, err := parseTimeAt(task.TimeAt); err != nil {
				return fmt.Errorf("task %q: %w", name, err)
			}
			if task.IntervalType == IntervalWeekly {
				if _, err := parseWeekday(task.Weekday); err != nil {
					return fmt.Errorf("task %q: %w", name, err)
				}
			}
		default:
			return fmt.Errorf("task %q: unknown interval_type %q", name, task.IntervalType)
		}
	}
	return nil
}

// TaskTimeout returns the per-run timeout.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMinutes) * time.Minute
}

func parseTimeAt(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("time_at %q is not HH:MM", value)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

func parseWeekday(value string) (time.Weekday, error) {
	days := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	day, ok := days[strings.ToLower(value)]
	if !ok {
		return 0, fmt.Errorf("weekday %q is not a day name", value)
	}
	return day, nil
}

// Interval renders the schedule in a human-readable form.
func (t TaskConfig) Interval() string {
	switch t.IntervalType {
	case IntervalMinutes, IntervalHours:
		return fmt.Sprintf("every %d %s", t.IntervalValue, t.IntervalType)
	case IntervalDaily:
		return fmt.Sprintf("daily at %s", t.TimeAt)
	case IntervalWeekly:
		return fmt.Sprintf("weekly on %s at %s", strings.ToLower(t.Weekday), t.TimeAt)
	}
	return t.IntervalType
}

// next returns when the task fires after now, given its last run. Disabled
// or malformed tasks return the zero time.
func (t TaskConfig) next(lastRun, now time.Time) time.Time {
	if !t.Enabled {
		return time.Time{}
	}
	switch t.IntervalType {
	case IntervalMinutes:
		return lastRun.Add(time.Duration(t.IntervalValue) * time.Minute)
	case IntervalHours:
		return lastRun.Add(time.Duration(t.IntervalValue) * time.Hour)
	case IntervalDaily:
		at, err := parseTimeAt(t.TimeAt)
		if err != nil {
			return time.Time{}
		}
		scheduled := now.Truncate(24 * time.Hour).Add(at)
		if scheduled.After(now) {
			return scheduled
		}
		return scheduled.Add(24 * time.Hour)
	case IntervalWeekly:
		at, err := parseTimeAt(t.TimeAt)
		if err != nil {
			return time.Time{}
		}
		day, err := parseWeekday(t.Weekday)
		if err != nil {
			return time.Time{}
		}
		scheduled := now.Truncate(24 * time.Hour).Add(at)
		for scheduled.Weekday() != day || !scheduled.After(now) {
			scheduled = scheduled.Add(24 * time.Hour)
		}
		return scheduled
	}
	return time.Time{}
}

// due reports whether the task should fire at now given its last run.
func (t TaskConfig) due(lastRun, now time.Time) bool {
	if !t.Enabled {
		return false
	}
	switch t.IntervalType {
	case IntervalMinutes:
		return now.Sub(lastRun) >= time.Duration(t.IntervalValue)*time.Minute
	case IntervalHours:
		return now.Sub(lastRun) >= time.Duration(t.IntervalValue)*time.Hour
	case IntervalDaily:
		at, err := parseTimeAt(t.TimeAt)
		if err != nil {
			return false
		}
		scheduled := now.Truncate(24 * time.Hour).Add(at)
		return !now.Before(scheduled) && lastRun.Before(scheduled)
	case IntervalWeekly:
		at, err := parseTimeAt(t.TimeAt)
		if err != nil {
			return false
		}
		day, err := parseWeekday(t.Weekday)
		if err != nil {
			return false
		}
		if now.Weekday() != day {
			return false
		}
		scheduled := now.Truncate(24 * time.Hour).Add(at)
		return !now.Before(scheduled) && lastRun.Before(scheduled)
	}
	return false
}
