package store

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/Kaiser2484/bida-booking/services/notification-service/internal/notifier"
)

// ChannelNotifications carries freshly pushed messages to connected clients.
const ChannelNotifications = "notifications"

// feedLimit caps the per-user history kept in redis.
const feedLimit = 100

// Feed keeps a bounded per-user notification history in redis lists plus a
// set of unread message ids, and publishes each push for live delivery.
type Feed struct {
	rdb *redis.Client
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb}
}

func feedKey(userID string) string   { return "notifications:" + userID }
func unreadKey(userID string) string { return "notifications:unread:" + userID }

func (f *Feed) Push(ctx context.Context, msg notifier.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pipe := f.rdb.TxPipeline()
	pipe.LPush(ctx, feedKey(msg.UserID), raw)
	pipe.LTrim(ctx, feedKey(msg.UserID), 0, feedLimit-1)
	if msg.ID != "" {
		pipe.SAdd(ctx, unreadKey(msg.UserID), msg.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	// Live push is best-effort; the feed itself is already durable.
	_ = f.rdb.Publish(ctx, ChannelNotifications, raw).Err()
	return nil
}

func (f *Feed) List(ctx context.Context, userID string, limit int64) ([]notifier.Message, int64, error) {
	if limit <= 0 || limit > feedLimit {
		limit = 50
	}
	raws, err := f.rdb.LRange(ctx, feedKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, 0, err
	}
	msgs := make([]notifier.Message, 0, len(raws))
	for _, raw := range raws {
		var m notifier.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	unread, err := f.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return msgs, unread, nil
}

func (f *Feed) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return f.rdb.SCard(ctx, unreadKey(userID)).Result()
}

// MarkRead clears one message from the unread set. Unknown or already-read
// ids are a no-op, so retries are safe.
func (f *Feed) MarkRead(ctx context.Context, userID, msgID string) error {
	return f.rdb.SRem(ctx, unreadKey(userID), msgID).Err()
}

func (f *Feed) MarkAllRead(ctx context.Context, userID string) error {
	return f.rdb.Del(ctx, unreadKey(userID)).Err()
}
