package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	ID string
}

func TestQueue_PublishConsumeAck(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	assert.Nil(t, queue.Publish(ctx, &payload{ID: "m-1"}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, "m-1", message.T().ID)
	assert.Nil(t, message.Ack())

	// double processing is rejected
	assert.NotNil(t, message.Ack())
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_ConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.NotNil(t, err)
}

func TestQueue_NackRetriesThenDeadLetters(t *testing.T) {
	config := Config{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		DeadLetter: true,
	}
	queue := NewQueue[payload](config)
	ctx := context.Background()

	assert.Nil(t, queue.Publish(ctx, &payload{ID: "m-1"}))

	// first failure requeues after the retry delay
	message, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Nil(t, message.Nack(errors.New("delivery failed")))

	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	message, err = queue.Consume(consumeCtx)
	assert.Nil(t, err)
	assert.Equal(t, "m-1", message.T().ID)

	// second failure exhausts retries and lands in the dead letter queue
	assert.Nil(t, message.Nack(errors.New("delivery failed again")))
	assert.Eventually(t, func() bool { return queue.DLQSize() == 1 }, time.Second, 10*time.Millisecond)
}
