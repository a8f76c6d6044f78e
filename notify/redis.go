package notify

import (
	"context"
	"encoding/json"

	"tradedesk/logging"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const EventsChannel = "tradedesk-events"

// RedisFanout publishes events on a Redis channel so every instance's hub
// sees them. Run delivers what arrives to the local hub.
type RedisFanout struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisFanout(client *redis.Client, hub *Hub) *RedisFanout {
	return &RedisFanout{client: client, hub: hub}
}

func (f *RedisFanout) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, EventsChannel, data).Err()
}

// Run blocks until ctx is done.
func (f *RedisFanout) Run(ctx context.Context) {
	sub := f.client.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	ch := sub.Channel()

	logging.Logger.Info("listening for events", zap.String("channel", EventsChannel))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				logging.Logger.Warn("bad event payload", zap.Error(err))
				continue
			}
			if err := Deliver(f.hub, e); err != nil {
				logging.Logger.Warn("deliver event", zap.String("type", e.Type), zap.Error(err))
			}
		}
	}
}
