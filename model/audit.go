package model

import "time"

// Audit action codes emitted by the engine and scheduler jobs.
const (
	ActionRequestCreated      = "request_created"
	ActionRecipientsAdded     = "recipients_added"
	ActionNotificationsSent   = "notifications_sent"
	ActionNotificationsFailed = "notifications_failed"
	ActionRecipientApproved   = "recipient_approved"
	ActionRecipientRejected   = "recipient_rejected"
	ActionRecipientExpired    = "recipient_expired"
	ActionRequestCompleted    = "request_completed"
	ActionRequestCancelled    = "request_cancelled"
	ActionRequestDeleted      = "request_deleted"
	ActionRequestExpired      = "request_expired"
	ActionTokenCleanup        = "token_cleanup"
)

// AuditLog is an append-only event record. Entries are never mutated; the
// only deletion path is the retention cleanup job.
type AuditLog struct {
	ID        string `json:"id"`
	RequestID string `json:"requestId,omitempty"`
	// UserID is empty for system/automatic actions.
	UserID   string                 `json:"userId,omitempty"`
	Action   string                 `json:"action"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy with its own metadata map.
func (a *AuditLog) Clone() *AuditLog {
	if a == nil {
		return nil
	}
	ret := *a
	if a.Metadata != nil {
		ret.Metadata = make(map[string]interface{}, len(a.Metadata))
		for k, v := range a.Metadata {
			ret.Metadata[k] = v
		}
	}
	return &ret
}
