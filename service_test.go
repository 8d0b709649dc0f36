package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/viant/approval"
	"github.com/viant/approval/model"
	"github.com/viant/approval/service/scheduler"
	storememory "github.com/viant/approval/service/store/memory"
	"github.com/viant/approval/service/workflow"
)

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	directory := storememory.NewDirectory()
	directory.AddUser(&model.User{ID: "user-1", Email: "rita@corp.test", DisplayName: "Rita Reyes"})
	directory.AddDocument(&model.Document{ID: "doc-1", OwnerID: "user-1", Filename: "contract.pdf"})

	service, err := approval.New(ctx,
		approval.WithDirectory(directory),
		approval.WithLogger(zap.NewNop()),
	)
	assert.Nil(t, err)
	defer service.Shutdown()

	engine := service.Engine()
	detail, err := engine.CreateRequest(ctx, &workflow.NewRequest{
		DocumentID:  "doc-1",
		RequesterID: "user-1",
		Title:       "Q3 contract sign-off",
		Policy:      model.PolicyAny,
		Recipients: []workflow.NewRecipient{
			{Email: "ana@corp.test", Name: "Ana"},
			{Email: "ben@corp.test", Name: "Ben"},
		},
	})
	assert.Nil(t, err)

	outcome, err := engine.SubmitDecision(ctx, &workflow.DecisionInput{
		Token:    detail.Recipients[0].Token,
		Decision: model.DecisionApproved,
	})
	assert.Nil(t, err)
	assert.True(t, outcome.Completed)
	assert.EqualValues(t, model.RequestApproved, outcome.RequestStatus)

	// the default dispatcher queued two invitations and one completion notice
	queue := service.Notifications()
	if assert.NotNil(t, queue) {
		kinds := map[string]int{}
		for i := 0; i < 3; i++ {
			consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
			message, err := queue.Consume(consumeCtx)
			cancel()
			if !assert.Nil(t, err) {
				break
			}
			kinds[string(message.T().Kind)]++
			assert.Nil(t, message.Ack())
		}
		assert.Equal(t, 2, kinds["request_created"])
		assert.Equal(t, 1, kinds["completion"])
	}

	result := service.Scheduler().RunTaskNow(ctx, scheduler.TaskWeeklyStatistics)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Items)

	trail, err := engine.AuditTrail(ctx, detail.Request.ID, "user-1")
	assert.Nil(t, err)
	assert.NotEmpty(t, trail)
}

func TestService_DefaultsAreUsable(t *testing.T) {
	service, err := approval.New(context.Background(), approval.WithLogger(zap.NewNop()))
	assert.Nil(t, err)
	defer service.Shutdown()

	assert.NotNil(t, service.Engine())
	assert.NotNil(t, service.Scheduler())
	assert.False(t, service.Scheduler().Running())

	service.Start(context.Background())
	assert.True(t, service.Scheduler().Running())
}

func TestService_RejectsInvalidSchedule(t *testing.T) {
	config := approval.DefaultConfig()
	config.Scheduler = scheduler.DefaultConfig()
	config.Scheduler.Tasks["bogus"] = scheduler.TaskConfig{Enabled: true, IntervalType: "minutes", IntervalValue: 1}

	_, err := approval.New(context.Background(), approval.WithConfig(config), approval.WithLogger(zap.NewNop()))
	assert.NotNil(t, err)
}
