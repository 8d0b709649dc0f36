// Package scheduler runs the recurring maintenance jobs of the approval
// workflow: reminders, expiry sweeps, delayed completion notices, token and
// audit retention, and weekly statistics. Jobs run on a bounded worker pool
// with a per-run timeout; a failing or panicking job is recorded and retried
// on its next scheduled slot.
package scheduler
