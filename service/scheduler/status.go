package scheduler

import "time"

// RunResult is the structured outcome of a single job execution.
type RunResult struct {
	Task     string        `json:"task"`
	Success  bool          `json:"success"`
	Items    int           `json:"items"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// TaskStatus combines a task's configured descriptor with its accumulated
// run counters.
type TaskStatus struct {
	Name              string        `json:"name"`
	Enabled           bool          `json:"enabled"`
	Interval          string        `json:"interval,omitempty"`
	Description       string        `json:"description,omitempty"`
	Runs              int           `json:"runs"`
	Failures          int           `json:"failures"`
	ConsecutiveErrors int           `json:"consecutiveErrors"`
	LastRun           time.Time     `json:"lastRun,omitempty"`
	LastDuration      time.Duration `json:"lastDuration,omitempty"`
	LastError         string        `json:"lastError,omitempty"`
	// NextRun is the upcoming firing; zero while the scheduler is stopped
	// or the task is disabled.
	NextRun time.Time `json:"nextRun,omitempty"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running         bool         `json:"running"`
	MaxWorkers      int          `json:"maxWorkers"`
	ConfiguredTasks int          `json:"configuredTasks"`
	EnabledTasks    int          `json:"enabledTasks"`
	Tasks           []TaskStatus `json:"tasks"`
}
