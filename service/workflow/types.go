package workflow

import (
	"time"

	"github.com/viant/approval/model"
)

// MaxRecipients bounds the approver list of a single request.
const MaxRecipients = 20

// DefaultListLimit applies when ListForRequester gets limit <= 0.
const DefaultListLimit = 50

// NewRecipient describes one invited approver on a new request.
type NewRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	// ExpiresAt overrides the request-level expiry for this recipient.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// NewRequest carries everything needed to open an approval workflow.
type NewRequest struct {
	DocumentID  string         `json:"documentId"`
	RequesterID string         `json:"requesterId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Policy      model.Policy   `json:"policy"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	Recipients  []NewRecipient `json:"recipients"`
	Comments    string         `json:"comments,omitempty"`

	ClientIP  string `json:"-"`
	UserAgent string `json:"-"`
}

// DecisionInput is a recipient decision submitted with a token.
type DecisionInput struct {
	Token    string `json:"-"`
	Decision string `json:"decision"`
	Comments string `json:"comments,omitempty"`

	ClientIP  string `json:"-"`
	UserAgent string `json:"-"`
}

// DecisionOutcome is the result of a successful decision submission.
type DecisionOutcome struct {
	Message          string                `json:"message"`
	RecipientStatus  model.RecipientStatus `json:"recipient_status"`
	RecipientEmail   string                `json:"recipient_email"`
	RequestID        string                `json:"approval_request_id"`
	RequestTitle     string                `json:"approval_request_title"`
	RequestStatus    model.RequestStatus   `json:"approval_request_status"`
	Completed        bool                  `json:"completed"`
	CompletionReason string                `json:"completion_reason,omitempty"`
}

// RequestDetail is a request snapshot together with its recipients.
type RequestDetail struct {
	Request    *model.Request     `json:"request"`
	Recipients []*model.Recipient `json:"recipients"`
}

// RequestSummary annotates a request with live recipient counters computed
// at read time.
type RequestSummary struct {
	Request        *model.Request `json:"request"`
	RecipientCount int            `json:"recipient_count"`
	ApprovedCount  int            `json:"approved_count"`
	PendingCount   int            `json:"pending_count"`
}

// PendingSummary is one entry of the unauthenticated recipient dashboard.
type PendingSummary struct {
	RequestID         string       `json:"approval_request_id"`
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	RequesterName     string       `json:"requester_name"`
	DocumentID        string       `json:"document_id"`
	DocumentFilename  string       `json:"document_filename"`
	Policy            model.Policy `json:"approval_type"`
	CreatedAt         time.Time    `json:"created_at"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`
	Token             string       `json:"approval_token"`
	RecipientName     string       `json:"recipient_name,omitempty"`
	RequesterComments string       `json:"requester_comments,omitempty"`
}

// TokenInfo previews the request a token belongs to without consuming it.
type TokenInfo struct {
	RequestID       string                `json:"approval_request_id"`
	Title           string                `json:"title"`
	Description     string                `json:"description,omitempty"`
	RequesterName   string                `json:"requester_name"`
	Policy          model.Policy          `json:"approval_type"`
	RequestStatus   model.RequestStatus   `json:"approval_request_status"`
	RecipientEmail  string                `json:"recipient_email"`
	RecipientName   string                `json:"recipient_name,omitempty"`
	RecipientStatus model.RecipientStatus `json:"recipient_status"`
	ExpiresAt       *time.Time            `json:"expires_at,omitempty"`
	Responded       bool                  `json:"responded"`
}

// Confirmation acknowledges a cancel or delete operation.
type Confirmation struct {
	Message   string              `json:"message"`
	RequestID string              `json:"request_id"`
	Status    model.RequestStatus `json:"status,omitempty"`
}

// RequesterStatistics aggregates a user's requests by status plus the
// number of requests still waiting on them as a recipient.
type RequesterStatistics struct {
	Requested          map[model.RequestStatus]int `json:"requested"`
	PendingAsRecipient int                         `json:"pending_as_recipient"`
}
