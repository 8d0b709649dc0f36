package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/approval/internal/clock"
	"github.com/viant/approval/model"
	notifymemory "github.com/viant/approval/service/notify/memory"
	storememory "github.com/viant/approval/service/store/memory"
	"github.com/viant/approval/service/workflow"
)

type testEnv struct {
	service    *workflow.Service
	requests   *storememory.Requests
	recipients *storememory.Recipients
	audits     *storememory.Audits
	directory  *storememory.Directory
	dispatcher *notifymemory.Service
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		requests:   storememory.NewRequests(),
		recipients: storememory.NewRecipients(),
		audits:     storememory.NewAudits(),
		directory:  storememory.NewDirectory(),
		dispatcher: notifymemory.New(),
	}
	env.directory.AddUser(&model.User{ID: "user-1", Email: "rita@corp.test", DisplayName: "Rita Reyes"})
	env.directory.AddUser(&model.User{ID: "user-2", Email: "omar@corp.test", DisplayName: "Omar Diaz"})
	env.directory.AddDocument(&model.Document{ID: "doc-1", OwnerID: "user-1", Filename: "contract.pdf"})
	env.directory.AddDocument(&model.Document{ID: "doc-2", OwnerID: "user-2", Filename: "budget.xlsx"})

	var err error
	env.service, err = workflow.New(
		workflow.WithRequests(env.requests),
		workflow.WithRecipients(env.recipients),
		workflow.WithAudits(env.audits),
		workflow.WithDirectory(env.directory),
		workflow.WithDispatcher(env.dispatcher),
	)
	assert.Nil(t, err)
	return env
}

func fixClock(t *testing.T, at time.Time) {
	prev := clock.NowFunc
	clock.NowFunc = func() time.Time { return at }
	t.Cleanup(func() { clock.NowFunc = prev })
}

func newRequestInput(policy model.Policy, emails ...string) *workflow.NewRequest {
	input := &workflow.NewRequest{
		DocumentID:  "doc-1",
		RequesterID: "user-1",
		Title:       "Q3 contract sign-off",
		Policy:      policy,
	}
	for _, email := range emails {
		input.Recipients = append(input.Recipients, workflow.NewRecipient{Email: email})
	}
	return input
}

func auditActions(t *testing.T, env *testEnv, requestID string) []string {
	entries, err := env.audits.ListByRequest(context.Background(), requestID)
	assert.Nil(t, err)
	var ret []string
	for _, entry := range entries {
		ret = append(ret, entry.Action)
	}
	return ret
}

func TestService_CreateRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)
	assert.EqualValues(t, model.RequestPending, detail.Request.Status)
	assert.Equal(t, 2, len(detail.Recipients))
	assert.NotEqual(t, detail.Recipients[0].Token, detail.Recipients[1].Token)
	for _, recipient := range detail.Recipients {
		assert.NotEmpty(t, recipient.Token)
		assert.NotNil(t, recipient.EmailSentAt)
		assert.EqualValues(t, model.RecipientPending, recipient.Status)
	}

	invites := env.dispatcher.MessagesOf("request_created")
	assert.Equal(t, 2, len(invites))
	assert.Equal(t, "ana@corp.test", invites[0].Data["to"])
	assert.Equal(t, "Rita Reyes", invites[0].Data["requester_name"])

	actions := auditActions(t, env, detail.Request.ID)
	assert.EqualValues(t, []string{
		model.ActionRequestCreated,
		model.ActionRecipientsAdded,
		model.ActionNotificationsSent,
	}, actions)
}

func TestService_CreateRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tooMany := newRequestInput(model.PolicyAll)
	for i := 0; i < workflow.MaxRecipients+1; i++ {
		tooMany.Recipients = append(tooMany.Recipients, workflow.NewRecipient{Email: string(rune('a'+i)) + "@corp.test"})
	}

	testCases := []struct {
		description string
		mutate      func(*workflow.NewRequest)
		input       *workflow.NewRequest
		expect      func(error) bool
	}{
		{
			description: "missing title",
			mutate:      func(r *workflow.NewRequest) { r.Title = "  " },
			expect:      workflow.IsValidation,
		},
		{
			description: "unknown policy",
			mutate:      func(r *workflow.NewRequest) { r.Policy = "majority" },
			expect:      workflow.IsValidation,
		},
		{
			description: "no recipients",
			mutate:      func(r *workflow.NewRequest) { r.Recipients = nil },
			expect:      workflow.IsValidation,
		},
		{
			description: "duplicate recipient email",
			mutate: func(r *workflow.NewRequest) {
				r.Recipients = append(r.Recipients, workflow.NewRecipient{Email: "ANA@corp.test"})
			},
			expect: workflow.IsValidation,
		},
		{
			description: "too many recipients",
			input:       tooMany,
			expect:      workflow.IsValidation,
		},
		{
			description: "unknown document",
			mutate:      func(r *workflow.NewRequest) { r.DocumentID = "doc-404" },
			expect:      workflow.IsNotFound,
		},
		{
			description: "document owned by someone else",
			mutate:      func(r *workflow.NewRequest) { r.DocumentID = "doc-2" },
			expect:      workflow.IsNotFound,
		},
	}

	for _, testCase := range testCases {
		input := testCase.input
		if input == nil {
			input = newRequestInput(model.PolicyAll, "ana@corp.test")
			testCase.mutate(input)
		}
		_, err := env.service.CreateRequest(ctx, input)
		if assert.NotNil(t, err, testCase.description) {
			assert.True(t, testCase.expect(err), testCase.description)
		}
	}
}

func TestService_CreateRequest_RejectsSecondPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test"))
	assert.Nil(t, err)
	_, err = env.service.CreateRequest(ctx, newRequestInput(model.PolicyAny, "ben@corp.test"))
	assert.True(t, workflow.IsValidation(err))
}

func TestService_SubmitDecision_AllPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)

	first, err := env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
		Comments: "looks good",
	})
	assert.Nil(t, err)
	assert.False(t, first.Completed)
	assert.EqualValues(t, model.RequestPending, first.RequestStatus)

	second, err := env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[1].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)
	assert.True(t, second.Completed)
	assert.EqualValues(t, model.RequestApproved, second.RequestStatus)
	assert.EqualValues(t, model.ReasonAllApproved, second.CompletionReason)

	completions := env.dispatcher.MessagesOf("completion")
	if assert.Equal(t, 1, len(completions)) {
		assert.Equal(t, "rita@corp.test", completions[0].Data["to"])
	}

	request, err := env.requests.Load(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.NotNil(t, request.CompletedAt)
	assert.NotNil(t, request.CompletionNotifiedAt)
	assert.Contains(t, auditActions(t, env, request.ID), model.ActionRequestCompleted)
}

func TestService_SubmitDecision_AllPolicyRejection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)

	outcome, err := env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionRejected,
		Comments: "missing appendix",
	})
	assert.Nil(t, err)
	assert.True(t, outcome.Completed)
	assert.EqualValues(t, model.RequestRejected, outcome.RequestStatus)
	assert.EqualValues(t, model.ReasonAtLeastOneRejection, outcome.CompletionReason)
}

func TestService_SubmitDecision_AnyPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAny, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)

	outcome, err := env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)
	assert.True(t, outcome.Completed)
	assert.EqualValues(t, model.RequestApproved, outcome.RequestStatus)
	assert.EqualValues(t, model.ReasonAtLeastOneApproval, outcome.CompletionReason)
}

func TestService_SubmitDecision_TokenSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)

	input := &workflow.DecisionInput{Token: detail.Recipients[0].Token, Decision: model.DecisionApproved}
	_, err = env.service.SubmitDecision(ctx, input)
	assert.Nil(t, err)

	input.Decision = model.DecisionRejected
	_, err = env.service.SubmitDecision(ctx, input)
	assert.True(t, workflow.IsValidation(err))
	assert.Contains(t, err.Error(), "already responded")
}

func TestService_SubmitDecision_ConcurrentRecipients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	emails := []string{
		"a1@corp.test", "a2@corp.test", "a3@corp.test", "a4@corp.test",
		"a5@corp.test", "a6@corp.test", "a7@corp.test", "a8@corp.test",
	}
	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, emails...))
	assert.Nil(t, err)

	var wg sync.WaitGroup
	errs := make([]error, len(detail.Recipients))
	outcomes := make([]*workflow.DecisionOutcome, len(detail.Recipients))
	for i, recipient := range detail.Recipients {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			outcomes[i], errs[i] = env.service.SubmitDecision(ctx, &workflow.DecisionInput{
				Token:    token,
				Decision: model.DecisionApproved,
			})
		}(i, recipient.Token)
	}
	wg.Wait()

	completed := 0
	for i := range errs {
		assert.Nil(t, errs[i])
		if outcomes[i] != nil && outcomes[i].Completed {
			completed++
		}
	}
	assert.True(t, completed >= 1)

	request, err := env.requests.Load(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, model.RequestApproved, request.Status)
	assert.EqualValues(t, model.ReasonAllApproved, request.CompletionReason)
	assert.NotNil(t, request.CompletedAt)

	approvals, completions := 0, 0
	for _, action := range auditActions(t, env, detail.Request.ID) {
		switch action {
		case model.ActionRecipientApproved:
			approvals++
		case model.ActionRequestCompleted:
			completions++
		}
	}
	assert.Equal(t, len(emails), approvals)
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, len(env.dispatcher.MessagesOf("completion")))
}

func TestService_SubmitDecision_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SubmitDecision(ctx, &workflow.DecisionInput{Token: "nope", Decision: "maybe"})
	assert.True(t, workflow.IsValidation(err))

	_, err = env.service.SubmitDecision(ctx, &workflow.DecisionInput{Token: "nope", Decision: model.DecisionApproved})
	assert.True(t, workflow.IsNotFound(err))
}

func TestService_SubmitDecision_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixClock(t, start)
	expiry := start.Add(24 * time.Hour)
	input := newRequestInput(model.PolicyAll, "ana@corp.test")
	input.ExpiresAt = &expiry
	detail, err := env.service.CreateRequest(ctx, input)
	assert.Nil(t, err)

	fixClock(t, start.Add(48*time.Hour))
	_, err = env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.True(t, workflow.IsValidation(err))
	assert.Contains(t, err.Error(), "expired")

	// the stale token flipped the recipient, and with no one else left the
	// request resolved as rejected
	recipients, err := env.recipients.ListByRequest(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, model.RecipientExpired, recipients[0].Status)

	request, err := env.requests.Load(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, model.RequestRejected, request.Status)
	assert.EqualValues(t, model.ReasonExpiredRecipients, request.CompletionReason)
}

func TestService_CancelRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)

	_, err = env.service.CancelRequest(ctx, detail.Request.ID, "user-2", "", "", "")
	assert.True(t, workflow.IsPermissionDenied(err))

	confirmation, err := env.service.CancelRequest(ctx, detail.Request.ID, "user-1", "superseded", "", "")
	assert.Nil(t, err)
	assert.EqualValues(t, model.RequestCancelled, confirmation.Status)

	recipients, err := env.recipients.ListByRequest(ctx, detail.Request.ID)
	assert.Nil(t, err)
	for _, recipient := range recipients {
		assert.EqualValues(t, model.RecipientExpired, recipient.Status)
	}

	_, err = env.service.CancelRequest(ctx, detail.Request.ID, "user-1", "", "", "")
	assert.True(t, workflow.IsValidation(err))
}

func TestService_DeleteRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test"))
	assert.Nil(t, err)

	_, err = env.service.DeleteRequest(ctx, detail.Request.ID, "user-2")
	assert.True(t, workflow.IsPermissionDenied(err))

	_, err = env.service.DeleteRequest(ctx, detail.Request.ID, "user-1")
	assert.Nil(t, err)

	_, err = env.service.GetRequest(ctx, detail.Request.ID, "user-1")
	assert.True(t, workflow.IsNotFound(err))

	_, err = env.service.TokenInfo(ctx, detail.Recipients[0].Token)
	assert.True(t, workflow.IsNotFound(err))

	// the trail outlives the request
	assert.Contains(t, auditActions(t, env, detail.Request.ID), model.ActionRequestDeleted)
}

func TestService_TokenInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test"))
	assert.Nil(t, err)

	info, err := env.service.TokenInfo(ctx, detail.Recipients[0].Token)
	assert.Nil(t, err)
	assert.Equal(t, detail.Request.ID, info.RequestID)
	assert.Equal(t, "Rita Reyes", info.RequesterName)
	assert.False(t, info.Responded)

	// previewing does not consume the token
	_, err = env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)

	info, err = env.service.TokenInfo(ctx, detail.Recipients[0].Token)
	assert.Nil(t, err)
	assert.True(t, info.Responded)
	assert.EqualValues(t, model.RecipientApproved, info.RecipientStatus)
}

func TestService_PendingForRecipientEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test"))
	assert.Nil(t, err)

	pending, err := env.service.PendingForRecipientEmail(ctx, "ana@corp.test")
	assert.Nil(t, err)
	if assert.Equal(t, 1, len(pending)) {
		assert.Equal(t, detail.Recipients[0].Token, pending[0].Token)
		assert.Equal(t, "contract.pdf", pending[0].DocumentFilename)
		assert.Equal(t, "Rita Reyes", pending[0].RequesterName)
	}

	_, err = env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)

	pending, err = env.service.PendingForRecipientEmail(ctx, "ana@corp.test")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(pending))
}

func TestService_ListForRequester(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test"))
	assert.Nil(t, err)
	_, err = env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)

	summaries, err := env.service.ListForRequester(ctx, "user-1", "", 0, 0)
	assert.Nil(t, err)
	if assert.Equal(t, 1, len(summaries)) {
		assert.Equal(t, 2, summaries[0].RecipientCount)
		assert.Equal(t, 1, summaries[0].ApprovedCount)
		assert.Equal(t, 1, summaries[0].PendingCount)
	}

	summaries, err = env.service.ListForRequester(ctx, "user-1", model.RequestApproved, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(summaries))
}

func TestService_ExpireOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixClock(t, start)
	expiry := start.Add(24 * time.Hour)
	input := newRequestInput(model.PolicyAll, "ana@corp.test", "ben@corp.test")
	input.ExpiresAt = &expiry
	detail, err := env.service.CreateRequest(ctx, input)
	assert.Nil(t, err)

	expired, err := env.service.ExpireOverdue(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 0, expired)

	fixClock(t, start.Add(48*time.Hour))
	expired, err = env.service.ExpireOverdue(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, expired)

	request, err := env.requests.Load(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.EqualValues(t, model.RequestExpired, request.Status)
	assert.EqualValues(t, model.ReasonExpired, request.CompletionReason)

	recipients, err := env.recipients.ListByRequest(ctx, detail.Request.ID)
	assert.Nil(t, err)
	for _, recipient := range recipients {
		assert.EqualValues(t, model.RecipientExpired, recipient.Status)
	}
	assert.Contains(t, auditActions(t, env, detail.Request.ID), model.ActionRequestExpired)
}

func TestService_CleanupTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixClock(t, start)
	expiry := start.Add(24 * time.Hour)
	input := newRequestInput(model.PolicyAll, "ana@corp.test")
	input.ExpiresAt = &expiry
	detail, err := env.service.CreateRequest(ctx, input)
	assert.Nil(t, err)

	fixClock(t, start.Add(10*24*time.Hour))
	_, err = env.service.ExpireOverdue(ctx)
	assert.Nil(t, err)

	cleaned, err := env.service.CleanupTokens(ctx, start.Add(7*24*time.Hour))
	assert.Nil(t, err)
	assert.Equal(t, 1, cleaned)

	recipients, err := env.recipients.ListByRequest(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.Empty(t, recipients[0].Token)

	_, err = env.service.TokenInfo(ctx, detail.Recipients[0].Token)
	assert.True(t, workflow.IsNotFound(err))
	assert.Contains(t, auditActions(t, env, detail.Request.ID), model.ActionTokenCleanup)
}

func TestService_RequesterStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAny, "ana@corp.test", "omar@corp.test"))
	assert.Nil(t, err)
	_, err = env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)

	stats, err := env.service.RequesterStatistics(ctx, "user-1")
	assert.Nil(t, err)
	assert.Equal(t, 1, stats.Requested[model.RequestApproved])
	assert.Equal(t, 0, stats.Requested[model.RequestPending])

	// user-2 is a recipient on user-1's request and has not answered
	stats, err = env.service.RequesterStatistics(ctx, "user-2")
	assert.Nil(t, err)
	assert.Equal(t, 1, stats.PendingAsRecipient)
}

func TestService_NotificationFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.dispatcher.Fail("request_created", true)

	detail, err := env.service.CreateRequest(ctx, newRequestInput(model.PolicyAll, "ana@corp.test"))
	assert.Nil(t, err)
	assert.Nil(t, detail.Recipients[0].EmailSentAt)
	assert.Contains(t, auditActions(t, env, detail.Request.ID), model.ActionNotificationsFailed)

	env.dispatcher.Fail("completion", true)
	outcome, err := env.service.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)
	assert.True(t, outcome.Completed)

	request, err := env.requests.Load(ctx, detail.Request.ID)
	assert.Nil(t, err)
	assert.Nil(t, request.CompletionNotifiedAt)
}
