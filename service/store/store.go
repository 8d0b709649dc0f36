// Package store defines the typed record-store contracts the engine and the
// scheduler jobs depend on. Implementations must be safe for concurrent use
// and must hand out snapshots: a loaded record never aliases stored state.
package store

import (
	"context"
	"time"

	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
)

// Requests persists approval requests.
type Requests interface {
	dao.Service[string, model.Request]

	// PendingByDocument returns the pending request for a document, or nil.
	PendingByDocument(ctx context.Context, documentID string) (*model.Request, error)

	// ListByRequester returns the requester's requests newest-first,
	// optionally filtered by status, paginated by limit/offset.
	ListByRequester(ctx context.Context, requesterID string, status model.RequestStatus, limit, offset int) ([]*model.Request, error)

	// ListOverdue returns pending requests whose expiry has passed.
	ListOverdue(ctx context.Context, now time.Time) ([]*model.Request, error)

	// ListExpiringPending returns pending requests with an expiry at or
	// before the cutoff (reminder candidates).
	ListExpiringPending(ctx context.Context, cutoff time.Time) ([]*model.Request, error)

	// ListUnnotifiedResolved returns approved/rejected requests whose
	// requester has not yet received a completion notification.
	ListUnnotifiedResolved(ctx context.Context) ([]*model.Request, error)

	// ListTerminalOlderThan returns expired/rejected requests past their
	// expiry and created before the cutoff (token-retention candidates).
	ListTerminalOlderThan(ctx context.Context, now, cutoff time.Time) ([]*model.Request, error)

	// CreatedBetween returns requests created in [from, to).
	CreatedBetween(ctx context.Context, from, to time.Time) ([]*model.Request, error)
}

// Recipients persists per-request approvers.
type Recipients interface {
	dao.Service[string, model.Recipient]

	// FindByToken resolves a decision token; dao.ErrNotFound when unknown.
	FindByToken(ctx context.Context, token string) (*model.Recipient, error)

	// ListByRequest returns every recipient of a request.
	ListByRequest(ctx context.Context, requestID string) ([]*model.Recipient, error)

	// ListPendingByEmail returns all pending recipient rows for an email.
	ListPendingByEmail(ctx context.Context, email string) ([]*model.Recipient, error)

	// DeleteByRequest removes all recipients of a request (cascade delete).
	DeleteByRequest(ctx context.Context, requestID string) error
}

// Audits persists the append-only audit trail.
type Audits interface {
	// Append adds an entry; entries are never updated afterwards.
	Append(ctx context.Context, entry *model.AuditLog) error

	// ListByRequest returns entries for a request, oldest first.
	ListByRequest(ctx context.Context, requestID string) ([]*model.AuditLog, error)

	// DeleteOlderThan removes up to limit entries created before the cutoff
	// and reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Directory exposes the read-only document and user lookups the engine
// needs; account management itself is an external concern.
type Directory interface {
	Document(ctx context.Context, id string) (*model.Document, error)
	User(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}
