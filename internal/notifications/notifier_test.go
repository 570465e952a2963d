package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PublishUser(t *testing.T) {
	// Notifier with nil Redis should return nil error (fail-open/noop)
	n := NewNotifier(nil)
	err := n.PublishUser(context.Background(), 1, "test payload")
	assert.NoError(t, err)
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
	}
}

func TestPostChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "posts:post:5", PostChannel(5))
}

func TestParseChannelID(t *testing.T) {
	t.Parallel()

	id, ok := parseChannelID("notifications:user:42", userChannelPrefix)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = parseChannelID("notifications:user:bogus", userChannelPrefix)
	assert.False(t, ok)
}

func TestNotifier_PatternSubscriberReceivesUserAndPost(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type msg struct{ channel, payload string }
	received := make(chan msg, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		received <- msg{channel, payload}
	}))

	require.NoError(t, n.PublishUser(context.Background(), 7, "user payload"))
	require.NoError(t, n.PublishPost(context.Background(), 9, "post payload"))

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-received:
			got[m.channel] = m.payload
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for pub/sub messages")
		}
	}
	assert.Equal(t, "user payload", got["notifications:user:7"])
	assert.Equal(t, "post payload", got["posts:post:9"])
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	payloads := make(chan string, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		atomic.AddInt32(&received, 1)
		payloads <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "before-cancel"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	// Drain the pre-cancel message to avoid false positives.
	select {
	case <-payloads:
	default:
	}

	require.NoError(t, n.PublishUser(context.Background(), 1, "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case payload := <-payloads:
			return payload == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestBroadcaster_WrapsEventEnvelope(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	b := NewBroadcaster(n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		received <- payload
	}))

	require.NoError(t, b.PublishPostEvent(context.Background(), 3, "like_update", map[string]any{"likes_count": 4}))

	select {
	case payload := <-received:
		var event Event
		require.NoError(t, json.Unmarshal([]byte(payload), &event))
		assert.Equal(t, "like_update", event.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}
