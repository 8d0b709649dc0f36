package fs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approval/model"
	"github.com/viant/approval/service/dao"
)

func TestRequests_RoundTrip(t *testing.T) {
	baseURL := fmt.Sprintf("mem://localhost/approval/%v/requests", time.Now().UnixNano())
	store, err := NewRequests(baseURL)
	assert.Nil(t, err)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := created.Add(48 * time.Hour)
	request := &model.Request{
		ID:          "r-1",
		DocumentID:  "doc-1",
		RequesterID: "user-1",
		Title:       "Q3 contract sign-off",
		Policy:      model.PolicyAll,
		Status:      model.RequestPending,
		CreatedAt:   created,
		UpdatedAt:   created,
		ExpiresAt:   &expiry,
	}
	assert.Nil(t, store.Save(ctx, request))

	loaded, err := store.Load(ctx, "r-1")
	assert.Nil(t, err)
	assert.EqualValues(t, request, loaded)

	pending, err := store.PendingByDocument(ctx, "doc-1")
	assert.Nil(t, err)
	if assert.NotNil(t, pending) {
		assert.Equal(t, "r-1", pending.ID)
	}

	overdue, err := store.ListOverdue(ctx, created.Add(72*time.Hour))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(overdue))

	assert.Nil(t, store.Delete(ctx, "r-1"))
	_, err = store.Load(ctx, "r-1")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestRecipients_RoundTrip(t *testing.T) {
	baseURL := fmt.Sprintf("mem://localhost/approval/%v/recipients", time.Now().UnixNano())
	store, err := NewRecipients(baseURL)
	assert.Nil(t, err)
	ctx := context.Background()

	recipient := &model.Recipient{
		ID:        "rc-1",
		RequestID: "r-1",
		Email:     "ana@corp.test",
		Token:     "tok-1",
		Status:    model.RecipientPending,
	}
	assert.Nil(t, store.Save(ctx, recipient))

	found, err := store.FindByToken(ctx, "tok-1")
	assert.Nil(t, err)
	assert.Equal(t, "rc-1", found.ID)

	pending, err := store.ListPendingByEmail(ctx, "Ana@corp.test")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(pending))

	assert.Nil(t, store.DeleteByRequest(ctx, "r-1"))
	_, err = store.FindByToken(ctx, "tok-1")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestAudits_RoundTrip(t *testing.T) {
	baseURL := fmt.Sprintf("mem://localhost/approval/%v/audits", time.Now().UnixNano())
	store, err := NewAudits(baseURL)
	assert.Nil(t, err)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, store.Append(ctx, &model.AuditLog{
		RequestID: "r-1",
		Action:    model.ActionRequestCreated,
		Metadata:  map[string]interface{}{"recipients_count": 2},
		CreatedAt: old,
	}))
	assert.Nil(t, store.Append(ctx, &model.AuditLog{
		RequestID: "r-1",
		Action:    model.ActionRequestCompleted,
	}))

	entries, err := store.ListByRequest(ctx, "r-1")
	assert.Nil(t, err)
	if assert.Equal(t, 2, len(entries)) {
		assert.Equal(t, model.ActionRequestCreated, entries[0].Action)
	}

	deleted, err := store.DeleteOlderThan(ctx, old.AddDate(0, 0, 1), 0)
	assert.Nil(t, err)
	assert.Equal(t, 1, deleted)
}
