// Package notify defines the notification dispatcher contract. Dispatch is
// always best-effort: a failed delivery returns false and must never
// surface as an error past the engine or scheduler boundary.
package notify

import "context"

// Kind identifies the notification template to render.
type Kind string

const (
	// KindRequestCreated invites a recipient to decide on a new request.
	KindRequestCreated Kind = "request_created"
	// KindReminder nudges a recipient about an expiring request.
	KindReminder Kind = "reminder"
	// KindCompletion tells the requester the final outcome.
	KindCompletion Kind = "completion"
)

// Context carries the template data for a single notification, including
// the destination address under "to".
type Context map[string]string

// Dispatcher attempts delivery of a single notification and reports
// success. Implementations must not panic and must not block beyond the
// supplied context.
type Dispatcher interface {
	Send(ctx context.Context, kind Kind, data Context) bool
}
