package model

import "time"

// Policy controls how recipient decisions aggregate into the request status.
type Policy string

const (
	// PolicyAll requires every recipient to approve.
	PolicyAll Policy = "all"
	// PolicyAny resolves the request on the first approval.
	PolicyAny Policy = "any"
)

// IsValid reports whether the policy is one of the supported values.
func (p Policy) IsValid() bool {
	return p == PolicyAll || p == PolicyAny
}

// RequestStatus represents the aggregate state of an approval request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	return s != RequestPending && s != ""
}

// Completion reason codes recorded when a request resolves.
const (
	ReasonAllApproved          = "all_approved"
	ReasonAtLeastOneRejection  = "at_least_one_rejection"
	ReasonExpiredRecipients    = "expired_recipients"
	ReasonAtLeastOneApproval   = "at_least_one_approval"
	ReasonAllRejectedOrExpired = "all_rejected_or_expired"
	ReasonCancelledByRequester = "cancelled_by_requester"
	ReasonExpired              = "expired"
)

// Request represents a document submitted for approval together with its
// aggregation policy and lifecycle timestamps (all UTC).
type Request struct {
	ID          string        `json:"id"`
	DocumentID  string        `json:"documentId"`
	RequesterID string        `json:"requesterId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Policy      Policy        `json:"policy"`
	Status      RequestStatus `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CompletionReason  string `json:"completionReason,omitempty"`
	RequesterComments string `json:"requesterComments,omitempty"`

	// CompletionNotifiedAt is stamped by the scheduler once the requester
	// has been told the final outcome.
	CompletionNotifiedAt *time.Time `json:"completionNotifiedAt,omitempty"`
}

// Overdue reports whether the request carries an expiry that has passed.
func (r *Request) Overdue(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Clone returns a deep copy so that stores can hand out snapshots.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	ret := *r
	ret.ExpiresAt = cloneTime(r.ExpiresAt)
	ret.CompletedAt = cloneTime(r.CompletedAt)
	ret.CompletionNotifiedAt = cloneTime(r.CompletionNotifiedAt)
	return &ret
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ret := *t
	return &ret
}
