package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/internal/idgen"
	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
	"github.com/viant/approval/service/notify"
	"github.com/viant/approval/service/store"
	"github.com/viant/approval/tracing"
)

// Service is the approval workflow engine. It owns request and recipient
// state transitions, decision evaluation and audit emission. It is pure
// logic over the record stores: no network and no time source beyond the
// clock package.
type Service struct {
	requests   store.Requests
	recipients store.Recipients
	audits     store.Audits
	directory  store.Directory
	dispatcher notify.Dispatcher
	logger     *zap.Logger
	// serialises aggregate re-evaluation so concurrent decisions produce
	// exactly one terminal transition
	evalMu sync.Mutex
}

// New creates an engine service; request, recipient, audit stores and the
// directory are required.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	if s.requests == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if s.recipients == nil {
		return nil, fmt.Errorf("recipient store is required")
	}
	if s.audits == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if s.directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// CreateRequest opens a new approval workflow: persists the request with
// its recipient set, emits audit entries and best-effort notifies every
// recipient. Notification failures never fail the call.
func (s *Service) CreateRequest(ctx context.Context, input *NewRequest) (ret *RequestDetail, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.CreateRequest", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.validateNewRequest(input); err != nil {
		return nil, err
	}
	document, err := s.directory.Document(ctx, input.DocumentID)
	if err != nil || document.OwnerID != input.RequesterID {
		return nil, NewNotFoundError("document %s not found or not authorized", input.DocumentID)
	}
	pending, err := s.requests.PendingByDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, NewValidationError("a pending approval request already exists for document %s", input.DocumentID)
	}

	now := clock.Now()
	request := &model.Request{
		ID:                idgen.New(),
		DocumentID:        input.DocumentID,
		RequesterID:       input.RequesterID,
		Title:             input.Title,
		Description:       input.Description,
		Policy:            input.Policy,
		Status:            model.RequestPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         input.ExpiresAt,
		RequesterComments: input.Comments,
	}
	if err = s.requests.Save(ctx, request); err != nil {
		return nil, err
	}
	span.WithAttributes(map[string]string{"request.id": request.ID})

	recipients := make([]*model.Recipient, 0, len(input.Recipients))
	for _, item := range input.Recipients {
		expiresAt := item.ExpiresAt
		if expiresAt == nil {
			expiresAt = input.ExpiresAt
		}
		recipient := &model.Recipient{
			ID:        idgen.New(),
			RequestID: request.ID,
			Email:     item.Email,
			Name:      item.Name,
			Token:     idgen.NewToken(),
			Status:    model.RecipientPending,
			ExpiresAt: expiresAt,
		}
		if err = s.recipients.Save(ctx, recipient); err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}

	s.audit(ctx, &model.AuditLog{
		RequestID: request.ID,
		UserID:    input.RequesterID,
		Action:    model.ActionRequestCreated,
		Details:   fmt.Sprintf("approval request created: %q", request.Title),
		Metadata: map[string]interface{}{
			"document_id":       document.ID,
			"document_filename": document.Filename,
			"approval_type":     string(request.Policy),
			"recipients_count":  len(recipients),
			"expires_at":        formatTime(request.ExpiresAt),
		},
		IPAddress: input.ClientIP,
		UserAgent: input.UserAgent,
	})
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, r.Email)
	}
	s.audit(ctx, &model.AuditLog{
		RequestID: request.ID,
		UserID:    input.RequesterID,
		Action:    model.ActionRecipientsAdded,
		Details:   fmt.Sprintf("added %d recipients to the request", len(recipients)),
		Metadata:  map[string]interface{}{"recipients": emails},
		IPAddress: input.ClientIP,
		UserAgent: input.UserAgent,
	})

	s.notifyRecipients(ctx, request, recipients)

	return &RequestDetail{Request: request, Recipients: recipients}, nil
}

func (s *Service) validateNewRequest(input *NewRequest) error {
	if input == nil {
		return NewValidationError("request payload is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return NewValidationError("title is required")
	}
	if !input.Policy.IsValid() {
		return NewValidationError("approval type must be %q or %q", model.PolicyAll, model.PolicyAny)
	}
	if len(input.Recipients) == 0 {
		return NewValidationError("at least one recipient is required")
	}
	if len(input.Recipients) > MaxRecipients {
		return NewValidationError("too many recipients: %d exceeds the limit of %d", len(input.Recipients), MaxRecipients)
	}
	seen := make(map[string]bool, len(input.Recipients))
	for _, r := range input.Recipients {
		email := strings.ToLower(strings.TrimSpace(r.Email))
		if email == "" {
			return NewValidationError("recipient email is required")
		}
		if seen[email] {
			return NewValidationError("duplicate recipient email: %s", r.Email)
		}
		seen[email] = true
	}
	return nil
}

// notifyRecipients dispatches the invitation to every recipient, stamping
// EmailSentAt on success. Outcomes are audit-logged; failures are swallowed.
func (s *Service) notifyRecipients(ctx context.Context, request *model.Request, recipients []*model.Recipient) {
	if s.dispatcher == nil {
		return
	}
	requesterName := s.userLabel(ctx, request.RequesterID)
	sent, failed := 0, 0
	for _, recipient := range recipients {
		data := notify.Context{
			"to":             recipient.Email,
			"recipient_name": recipient.Name,
			"title":          request.Title,
			"requester_name": requesterName,
			"token":          recipient.Token,
			"expires_at":     formatTime(recipient.ExpiresAt),
		}
		if s.dispatcher.Send(ctx, notify.KindRequestCreated, data) {
			now := clock.Now()
			recipient.EmailSentAt = &now
			if err := s.recipients.Save(ctx, recipient); err != nil {
				s.logger.Warn("failed to stamp recipient notification", zap.Error(err))
			}
			sent++
			continue
		}
		failed++
	}
	action := model.ActionNotificationsSent
	if failed > 0 && sent == 0 {
		action = model.ActionNotificationsFailed
	}
	s.audit(ctx, &model.AuditLog{
		RequestID: request.ID,
		UserID:    request.RequesterID,
		Action:    action,
		Details:   fmt.Sprintf("notifications dispatched to %d/%d recipients", sent, len(recipients)),
		Metadata:  map[string]interface{}{"sent": sent, "failed": failed},
	})
}

// SubmitDecision records an approve/reject decision identified solely by
// its token, then re-evaluates the aggregate request status. A token past
// its expiry transitions the recipient to expired even though the call
// fails, so a stale token is never reusable.
func (s *Service) SubmitDecision(ctx context.Context, input *DecisionInput) (ret *DecisionOutcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.SubmitDecision", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if input == nil || (input.Decision != model.DecisionApproved && input.Decision != model.DecisionRejected) {
		return nil, NewValidationError("decision must be %q or %q", model.DecisionApproved, model.DecisionRejected)
	}
	recipient, err := s.recipients.FindByToken(ctx, input.Token)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, NewNotFoundError("approval token not valid")
		}
		return nil, err
	}

	now := clock.Now()
	if recipient.Status == model.RecipientPending && recipient.Expired(now) {
		if err := s.expireRecipient(ctx, recipient, now); err != nil {
			return nil, err
		}
		return nil, NewValidationError("approval token expired")
	}
	if recipient.Status != model.RecipientPending {
		return nil, NewValidationError("already responded to this request (status: %s)", recipient.Status)
	}

	recipient.Status = model.RecipientApproved
	action := model.ActionRecipientApproved
	if input.Decision == model.DecisionRejected {
		recipient.Status = model.RecipientRejected
		action = model.ActionRecipientRejected
	}
	recipient.Decision = input.Decision
	recipient.Comments = input.Comments
	recipient.RespondedAt = &now
	recipient.IPAddress = input.ClientIP
	recipient.UserAgent = input.UserAgent
	if err = s.recipients.Save(ctx, recipient); err != nil {
		return nil, err
	}

	s.audit(ctx, &model.AuditLog{
		RequestID: recipient.RequestID,
		Action:    action,
		Details:   fmt.Sprintf("recipient %s %s the request", recipient.Email, input.Decision),
		Metadata: map[string]interface{}{
			"recipient_email": recipient.Email,
			"recipient_name":  recipient.Name,
			"decision":        input.Decision,
			"comments":        input.Comments,
		},
		IPAddress: input.ClientIP,
		UserAgent: input.UserAgent,
	})

	request, reason, resolved, err := s.evaluateAndPersist(ctx, recipient.RequestID)
	if err != nil {
		return nil, err
	}
	completed := request.Status != model.RequestPending
	// only the decision that landed the terminal transition notifies the
	// requester
	if resolved {
		s.notifyRequesterCompletion(ctx, request)
	}

	outcome := &DecisionOutcome{
		Message:          fmt.Sprintf("decision %q recorded", input.Decision),
		RecipientStatus:  recipient.Status,
		RecipientEmail:   recipient.Email,
		RequestID:        request.ID,
		RequestTitle:     request.Title,
		RequestStatus:    request.Status,
		Completed:        completed,
		CompletionReason: reason,
	}
	return outcome, nil
}

// expireRecipient flushes a silently-expired recipient and re-evaluates the
// owning request, since the status change may resolve it.
func (s *Service) expireRecipient(ctx context.Context, recipient *model.Recipient, now time.Time) error {
	recipient.Status = model.RecipientExpired
	if err := s.recipients.Save(ctx, recipient); err != nil {
		return err
	}
	s.audit(ctx, &model.AuditLog{
		RequestID: recipient.RequestID,
		Action:    model.ActionRecipientExpired,
		Details:   fmt.Sprintf("recipient %s expired automatically", recipient.Email),
		Metadata: map[string]interface{}{
			"recipient_email":     recipient.Email,
			"expired_at":          now.Format(time.RFC3339),
			"original_expires_at": formatTime(recipient.ExpiresAt),
		},
	})
	// resolution through silent expiry is notified by the delayed
	// completion job rather than inline
	_, _, _, err := s.evaluateAndPersist(ctx, recipient.RequestID)
	return err
}

// evaluateAndPersist recomputes the aggregate status from the current
// recipient snapshot and persists it when changed. The request is loaded
// and the transition applied under evalMu, so of any number of concurrent
// decision submissions exactly one reports resolved=true and the terminal
// transition is persisted and audited once.
func (s *Service) evaluateAndPersist(ctx context.Context, requestID string) (*model.Request, string, bool, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	request, err := s.requests.Load(ctx, requestID)
	if err != nil {
		return nil, "", false, err
	}
	if request.Status.IsTerminal() {
		return request, request.CompletionReason, false, nil
	}
	recipients, err := s.recipients.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, "", false, err
	}
	status, reason := Evaluate(request.Policy, request.Status, recipients)
	if status == request.Status {
		return request, reason, false, nil
	}
	now := clock.Now()
	request.Status = status
	request.CompletedAt = &now
	request.UpdatedAt = now
	request.CompletionReason = reason
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, "", false, err
	}
	tally := model.TallyOf(recipients)
	s.audit(ctx, &model.AuditLog{
		RequestID: request.ID,
		Action:    model.ActionRequestCompleted,
		Details:   fmt.Sprintf("approval request completed with status: %s", status),
		Metadata: map[string]interface{}{
			"final_status":      string(status),
			"completion_reason": reason,
			"approved_count":    tally.Approved,
			"rejected_count":    tally.Rejected,
			"expired_count":     tally.Expired,
			"approval_type":     string(request.Policy),
		},
	})
	return request, reason, true, nil
}

// notifyRequesterCompletion best-effort informs the requester of the final
// outcome and stamps CompletionNotifiedAt on success so the delayed
// completion job does not send a duplicate.
func (s *Service) notifyRequesterCompletion(ctx context.Context, request *model.Request) {
	if s.dispatcher == nil {
		return
	}
	requester, err := s.directory.User(ctx, request.RequesterID)
	if err != nil {
		s.logger.Warn("failed to resolve requester for completion notice",
			zap.String("requestId", request.ID), zap.Error(err))
		return
	}
	data := notify.Context{
		"to":             requester.Email,
		"requester_name": requester.Label(),
		"title":          request.Title,
		"final_status":   string(request.Status),
		"completed_at":   formatTime(request.CompletedAt),
	}
	if s.dispatcher.Send(ctx, notify.KindCompletion, data) {
		now := clock.Now()
		request.CompletionNotifiedAt = &now
		if err := s.requests.Save(ctx, request); err != nil {
			s.logger.Warn("failed to stamp completion notification", zap.Error(err))
		}
	}
}

// TokenInfo previews the request behind a token without consuming it. Like
// decision submission it flushes a silently-expired recipient first.
func (s *Service) TokenInfo(ctx context.Context, token string) (*TokenInfo, error) {
	recipient, err := s.recipients.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, NewNotFoundError("approval token not valid")
		}
		return nil, err
	}
	now := clock.Now()
	if recipient.Status == model.RecipientPending && recipient.Expired(now) {
		if err := s.expireRecipient(ctx, recipient, now); err != nil {
			return nil, err
		}
	}
	request, err := s.requests.Load(ctx, recipient.RequestID)
	if err != nil {
		return nil, err
	}
	return &TokenInfo{
		RequestID:       request.ID,
		Title:           request.Title,
		Description:     request.Description,
		RequesterName:   s.userLabel(ctx, request.RequesterID),
		Policy:          request.Policy,
		RequestStatus:   request.Status,
		RecipientEmail:  recipient.Email,
		RecipientName:   recipient.Name,
		RecipientStatus: recipient.Status,
		ExpiresAt:       recipient.ExpiresAt,
		Responded:       recipient.RespondedAt != nil,
	}, nil
}

// GetRequest returns the full request detail; only the requester may see it.
func (s *Service) GetRequest(ctx context.Context, requestID, userID string) (*RequestDetail, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if userID != "" && request.RequesterID != userID {
		return nil, NewPermissionDeniedError("not authorized to view this request")
	}
	recipients, err := s.recipients.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: request, Recipients: recipients}, nil
}

// ListForRequester returns the requester's requests newest-first with live
// recipient counters.
func (s *Service) ListForRequester(ctx context.Context, requesterID string, status model.RequestStatus, limit, offset int) ([]*RequestSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	requests, err := s.requests.ListByRequester(ctx, requesterID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	ret := make([]*RequestSummary, 0, len(requests))
	for _, request := range requests {
		recipients, err := s.recipients.ListByRequest(ctx, request.ID)
		if err != nil {
			return nil, err
		}
		tally := model.TallyOf(recipients)
		ret = append(ret, &RequestSummary{
			Request:        request,
			RecipientCount: tally.Total,
			ApprovedCount:  tally.Approved,
			PendingCount:   tally.Pending,
		})
	}
	return ret, nil
}

// PendingForRecipientEmail serves the unauthenticated recipient dashboard.
// Recipient rows whose expiry has silently passed are flushed to expired in
// a batch first so stale entries never leak into the view; flush failures
// are logged and swallowed.
func (s *Service) PendingForRecipientEmail(ctx context.Context, email string) ([]*PendingSummary, error) {
	pending, err := s.recipients.ListPendingByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := clock.Now()
	var ret []*PendingSummary
	for _, recipient := range pending {
		if recipient.Expired(now) {
			if err := s.expireRecipient(ctx, recipient, now); err != nil {
				s.logger.Warn("failed to flush expired recipient",
					zap.String("recipient", recipient.Email), zap.Error(err))
			}
			continue
		}
		request, err := s.requests.Load(ctx, recipient.RequestID)
		if err != nil {
			continue
		}
		if request.Status != model.RequestPending {
			continue
		}
		summary := &PendingSummary{
			RequestID:         request.ID,
			Title:             request.Title,
			Description:       request.Description,
			RequesterName:     s.userLabel(ctx, request.RequesterID),
			DocumentID:        request.DocumentID,
			Policy:            request.Policy,
			CreatedAt:         request.CreatedAt,
			ExpiresAt:         recipient.ExpiresAt,
			Token:             recipient.Token,
			RecipientName:     recipient.Name,
			RequesterComments: request.RequesterComments,
		}
		if document, err := s.directory.Document(ctx, request.DocumentID); err == nil {
			summary.DocumentFilename = document.Filename
		}
		ret = append(ret, summary)
	}
	return ret, nil
}

// CancelRequest cancels a pending request, expiring its pending recipients.
func (s *Service) CancelRequest(ctx context.Context, requestID, requesterID, reason, clientIP, userAgent string) (*Confirmation, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != requesterID {
		return nil, NewPermissionDeniedError("not authorized to cancel this request")
	}
	if request.Status != model.RequestPending {
		return nil, NewValidationError("cannot cancel a request in status %s", request.Status)
	}

	now := clock.Now()
	request.Status = model.RequestCancelled
	request.CompletedAt = &now
	request.UpdatedAt = now
	request.CompletionReason = model.ReasonCancelledByRequester
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, err
	}

	cancelled := 0
	recipients, err := s.recipients.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	for _, recipient := range recipients {
		if recipient.Status != model.RecipientPending {
			continue
		}
		recipient.Status = model.RecipientExpired
		if err := s.recipients.Save(ctx, recipient); err != nil {
			return nil, err
		}
		cancelled++
	}

	if reason == "" {
		reason = "no reason provided"
	}
	s.audit(ctx, &model.AuditLog{
		RequestID: request.ID,
		UserID:    requesterID,
		Action:    model.ActionRequestCancelled,
		Details:   "approval request cancelled by the requester",
		Metadata: map[string]interface{}{
			"reason":               reason,
			"cancelled_recipients": cancelled,
		},
		IPAddress: clientIP,
		UserAgent: userAgent,
	})

	return &Confirmation{
		Message:   fmt.Sprintf("approval request %q cancelled", request.Title),
		RequestID: request.ID,
		Status:    request.Status,
	}, nil
}

// DeleteRequest hard-deletes a pending request and its recipients. The
// audit entry is emitted before deletion so the trail survives.
func (s *Service) DeleteRequest(ctx context.Context, requestID, requesterID string) (*Confirmation, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != requesterID {
		return nil, NewPermissionDeniedError("not authorized to delete this request")
	}
	if request.Status != model.RequestPending {
		return nil, NewValidationError("cannot delete a request in status %s", request.Status)
	}

	s.audit(ctx, &model.AuditLog{
		RequestID: request.ID,
		UserID:    requesterID,
		Action:    model.ActionRequestDeleted,
		Details:   fmt.Sprintf("approval request %q deleted by the requester", request.Title),
		Metadata:  map[string]interface{}{"document_id": request.DocumentID},
	})

	if err := s.recipients.DeleteByRequest(ctx, request.ID); err != nil {
		return nil, err
	}
	if err := s.requests.Delete(ctx, request.ID); err != nil {
		return nil, err
	}
	return &Confirmation{
		Message:   fmt.Sprintf("approval request %q deleted", request.Title),
		RequestID: request.ID,
	}, nil
}

// AuditTrail returns the audit entries of a request, oldest first; only the
// requester may read them.
func (s *Service) AuditTrail(ctx context.Context, requestID, userID string) ([]*model.AuditLog, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if userID != "" && request.RequesterID != userID {
		return nil, NewPermissionDeniedError("not authorized to view the audit trail")
	}
	return s.audits.ListByRequest(ctx, request.ID)
}

// RequesterStatistics aggregates a user's requests by status plus the count
// of requests still pending their own decision.
func (s *Service) RequesterStatistics(ctx context.Context, requesterID string) (*RequesterStatistics, error) {
	ret := &RequesterStatistics{Requested: make(map[model.RequestStatus]int)}
	for _, status := range []model.RequestStatus{
		model.RequestPending, model.RequestApproved, model.RequestRejected,
		model.RequestCancelled, model.RequestExpired,
	} {
		ret.Requested[status] = 0
	}
	requests, err := s.requests.ListByRequester(ctx, requesterID, "", 0, 0)
	if err != nil {
		return nil, err
	}
	for _, request := range requests {
		ret.Requested[request.Status]++
	}
	if user, err := s.directory.User(ctx, requesterID); err == nil {
		pending, err := s.recipients.ListPendingByEmail(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		ret.PendingAsRecipient = len(pending)
	}
	return ret, nil
}

// ExpireOverdue transitions every pending request past its expiry to
// expired, together with its still-pending recipients. It is the guarantee
// stale requests do not linger with no further recipient activity.
func (s *Service) ExpireOverdue(ctx context.Context) (expired int, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.ExpireOverdue", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	now := clock.Now()
	overdue, err := s.requests.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, request := range overdue {
		request, err = s.expireRequest(ctx, request.ID, now)
		if err != nil {
			return expired, err
		}
		if request == nil {
			continue
		}
		recipients, err := s.recipients.ListByRequest(ctx, request.ID)
		if err != nil {
			return expired, err
		}
		for _, recipient := range recipients {
			if recipient.Status != model.RecipientPending {
				continue
			}
			recipient.Status = model.RecipientExpired
			if err := s.recipients.Save(ctx, recipient); err != nil {
				return expired, err
			}
		}
		s.audit(ctx, &model.AuditLog{
			RequestID: request.ID,
			UserID:    request.RequesterID,
			Action:    model.ActionRequestExpired,
			Details:   fmt.Sprintf("approval request %s expired automatically", request.ID),
			Metadata: map[string]interface{}{
				"expired_at":          now.Format(time.RFC3339),
				"original_expires_at": formatTime(request.ExpiresAt),
			},
		})
		expired++
	}
	return expired, nil
}

// expireRequest applies the expired transition under evalMu, skipping a
// request another writer already resolved.
func (s *Service) expireRequest(ctx context.Context, requestID string, now time.Time) (*model.Request, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	request, err := s.requests.Load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status.IsTerminal() {
		return nil, nil
	}
	request.Status = model.RequestExpired
	request.CompletedAt = &now
	request.UpdatedAt = now
	request.CompletionReason = model.ReasonExpired
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// SendReminders nudges pending recipients of requests expiring within the
// given window. A recipient is reminded at most once per minInterval and
// never before their invitation was sent. Returns the number of reminders
// delivered.
func (s *Service) SendReminders(ctx context.Context, window, minInterval time.Duration) (int, error) {
	if s.dispatcher == nil {
		return 0, nil
	}
	now := clock.Now()
	expiring, err := s.requests.ListExpiringPending(ctx, now.Add(window))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, request := range expiring {
		recipients, err := s.recipients.ListByRequest(ctx, request.ID)
		if err != nil {
			return sent, err
		}
		requesterName := s.userLabel(ctx, request.RequesterID)
		for _, recipient := range recipients {
			if recipient.Status != model.RecipientPending || recipient.Expired(now) {
				continue
			}
			if recipient.EmailSentAt == nil {
				continue
			}
			if recipient.LastReminderSent != nil && now.Sub(*recipient.LastReminderSent) < minInterval {
				continue
			}
			data := notify.Context{
				"to":             recipient.Email,
				"recipient_name": recipient.Name,
				"title":          request.Title,
				"requester_name": requesterName,
				"token":          recipient.Token,
				"expires_at":     formatTime(recipient.ExpiresAt),
			}
			if !s.dispatcher.Send(ctx, notify.KindReminder, data) {
				continue
			}
			stamp := now
			recipient.LastReminderSent = &stamp
			if err := s.recipients.Save(ctx, recipient); err != nil {
				s.logger.Warn("failed to stamp reminder", zap.Error(err))
			}
			sent++
		}
	}
	return sent, nil
}

// SendPendingCompletionNotices delivers the outcome notice for resolved
// requests whose requester has not been told yet, typically because the
// dispatch at resolution time failed. Returns the number delivered.
func (s *Service) SendPendingCompletionNotices(ctx context.Context) (int, error) {
	if s.dispatcher == nil {
		return 0, nil
	}
	unnotified, err := s.requests.ListUnnotifiedResolved(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, request := range unnotified {
		s.notifyRequesterCompletion(ctx, request)
		if request.CompletionNotifiedAt != nil {
			sent++
		}
	}
	return sent, nil
}

// CleanupTokens blanks the token material of recipients on terminal
// (expired/rejected) requests created before the cutoff. This is a data
// retention pass, not a status change: eligibility to decide is governed
// solely by recipient status and expiry.
func (s *Service) CleanupTokens(ctx context.Context, cutoff time.Time) (cleaned int, err error) {
	now := clock.Now()
	terminal, err := s.requests.ListTerminalOlderThan(ctx, now, cutoff)
	if err != nil {
		return 0, err
	}
	for _, request := range terminal {
		recipients, err := s.recipients.ListByRequest(ctx, request.ID)
		if err != nil {
			return cleaned, err
		}
		for _, recipient := range recipients {
			if recipient.Token == "" {
				continue
			}
			prefix := recipient.Token
			if len(prefix) > 8 {
				prefix = prefix[:8]
			}
			recipient.Token = ""
			if err := s.recipients.Save(ctx, recipient); err != nil {
				return cleaned, err
			}
			s.audit(ctx, &model.AuditLog{
				RequestID: request.ID,
				Action:    model.ActionTokenCleanup,
				Details:   fmt.Sprintf("cleaned expired token for approval request %s", request.ID),
				Metadata: map[string]interface{}{
					"reason":                "expired_token_cleanup",
					"original_token_prefix": prefix + "...",
				},
			})
			cleaned++
		}
	}
	return cleaned, nil
}

func (s *Service) loadRequest(ctx context.Context, requestID string) (*model.Request, error) {
	request, err := s.requests.Load(ctx, requestID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, NewNotFoundError("approval request %s not found", requestID)
		}
		return nil, err
	}
	return request, nil
}

// audit appends an entry; failures are logged and never fail the caller.
func (s *Service) audit(ctx context.Context, entry *model.AuditLog) {
	if err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry",
			zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *Service) userLabel(ctx context.Context, userID string) string {
	user, err := s.directory.User(ctx, userID)
	if err != nil {
		return userID
	}
	return user.Label()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
