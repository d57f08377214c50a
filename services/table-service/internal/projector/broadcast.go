package projector

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// ChannelTableUpdates carries live status changes to connected clients.
const ChannelTableUpdates = "table_updates"

// RedisBroadcaster pushes status changes over redis pub/sub so API nodes can
// fan them out without polling the database.
type RedisBroadcaster struct {
	rdb *redis.Client
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, ChannelTableUpdates, raw).Err()
}
