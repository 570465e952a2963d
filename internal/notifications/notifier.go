package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"devlink/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	postChannelPrefix = "posts:post:"
	broadcastChannel  = "notifications:broadcast"
)

// Notifier publishes realtime payloads into Redis channels so every API
// instance's hub can deliver them to its local websocket clients.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishPost sends a payload to a post's channel. Clients watching that post
// receive live counter updates.
func (n *Notifier) PublishPost(ctx context.Context, postID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, PostChannel(postID), payload).Err()
}

// PublishBroadcast sends a payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to the user, post and broadcast patterns
// and calls onMessage for each incoming message.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", postChannelPrefix+"*", broadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in pattern subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// PostChannel derives the Redis channel name for a post.
func PostChannel(postID uint) string {
	return postChannelPrefix + strconv.FormatUint(uint64(postID), 10)
}

func parseChannelID(channel, prefix string) (uint, bool) {
	raw := strings.TrimPrefix(channel, prefix)
	id64, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id64), true
}

// Event is the wire envelope for realtime messages.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Broadcaster wraps a Notifier with JSON event envelopes. It satisfies the
// service layer's event publisher.
type Broadcaster struct {
	notifier *Notifier
}

// NewBroadcaster returns a Broadcaster over the given Notifier.
func NewBroadcaster(notifier *Notifier) *Broadcaster {
	return &Broadcaster{notifier: notifier}
}

// PublishUserEvent marshals the event and publishes it to the user's channel.
func (b *Broadcaster) PublishUserEvent(ctx context.Context, userID uint, event string, payload any) error {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		return err
	}
	return b.notifier.PublishUser(ctx, userID, string(data))
}

// PublishPostEvent marshals the event and publishes it to the post's channel.
func (b *Broadcaster) PublishPostEvent(ctx context.Context, postID uint, event string, payload any) error {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		return err
	}
	return b.notifier.PublishPost(ctx, postID, string(data))
}
