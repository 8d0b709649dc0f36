package model

import "time"

// RecipientStatus represents the per-recipient decision state.
type RecipientStatus string

const (
	RecipientPending  RecipientStatus = "pending"
	RecipientApproved RecipientStatus = "approved"
	RecipientRejected RecipientStatus = "rejected"
	RecipientExpired  RecipientStatus = "expired"
)

// Decision values accepted from a recipient.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Recipient represents a single invited approver on a request. The Token is
// the sole credential for submitting a decision; it is generated at creation
// time and never changes (it may be blanked by the retention cleanup job once
// the owning request is terminal).
type Recipient struct {
	ID        string `json:"id"`
	RequestID string `json:"requestId"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`

	Status   RecipientStatus `json:"status"`
	Decision string          `json:"decision,omitempty"`
	Comments string          `json:"comments,omitempty"`

	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`

	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	EmailSentAt      *time.Time `json:"emailSentAt,omitempty"`
	LastReminderSent *time.Time `json:"lastReminderSent,omitempty"`
}

// Expired reports whether the recipient's effective expiry has passed.
func (r *Recipient) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Clone returns a deep copy so that stores can hand out snapshots.
func (r *Recipient) Clone() *Recipient {
	if r == nil {
		return nil
	}
	ret := *r
	ret.RespondedAt = cloneTime(r.RespondedAt)
	ret.ExpiresAt = cloneTime(r.ExpiresAt)
	ret.EmailSentAt = cloneTime(r.EmailSentAt)
	ret.LastReminderSent = cloneTime(r.LastReminderSent)
	return &ret
}

// Tally holds recipient counts by status for a single request.
type Tally struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
	Expired  int `json:"expired"`
}

// TallyOf computes recipient counters over a snapshot.
func TallyOf(recipients []*Recipient) Tally {
	var ret Tally
	ret.Total = len(recipients)
	for _, r := range recipients {
		switch r.Status {
		case RecipientApproved:
			ret.Approved++
		case RecipientRejected:
			ret.Rejected++
		case RecipientPending:
			ret.Pending++
		case RecipientExpired:
			ret.Expired++
		}
	}
	return ret
}
