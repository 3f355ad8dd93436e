package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-console/internal/event"
)

type recordedPublish struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	mu        sync.Mutex
	published []recordedPublish
	failNext  bool
	closed    bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _ string, key string, _ bool, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failNext {
		c.failNext = false
		return errors.New("channel closed")
	}
	c.published = append(c.published, recordedPublish{key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) snapshot() []recordedPublish {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedPublish(nil), c.published...)
}

func TestPublishBuildsPersistentJSONMessage(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p := newPublisher(ch, "console.session.events")
	e := event.New(event.TypeSessionLogin, "sid-1", "u1", "TEAM_ADMIN")

	require.NoError(t, p.Publish(context.Background(), e))

	got := ch.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "console.session.events", got[0].key)
	assert.Equal(t, "application/json", got[0].msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), got[0].msg.DeliveryMode)
	assert.Equal(t, e.ID, got[0].msg.MessageId)
	assert.Equal(t, "session.login", got[0].msg.Type)

	var decoded event.Event
	require.NoError(t, json.Unmarshal(got[0].msg.Body, &decoded))
	assert.Equal(t, e, decoded)
}

func TestRunForwardsBusEventsAndSurvivesFailures(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{failNext: true}
	p := newPublisher(ch, "audit")
	bus := event.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, bus)
		close(done)
	}()

	// Subscription happens inside Run; keep publishing until it is live.
	require.Eventually(t, func() bool {
		bus.Publish(event.New(event.TypeSessionExpired, "sid-1", "u1", "USER"))
		return len(ch.snapshot()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Equal(t, "session.expired", ch.snapshot()[0].msg.Type)
}
