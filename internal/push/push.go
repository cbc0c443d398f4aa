package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types mirroring row-level changes in the store.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// Tables carried over the change channel.
const (
	TableSessions = "sessions"
	TableStations = "stations"
)

// RowEvent describes one row change in a table.
type RowEvent struct {
	Table string `json:"table"`
	Type  string `json:"type"`
	RowID string `json:"row_id"`
}

// Publisher emits row change events.
type Publisher interface {
	Publish(ctx context.Context, event RowEvent) error
}

// Subscriber delivers row change events for one table.
type Subscriber interface {
	Subscribe(ctx context.Context, table string) (<-chan RowEvent, func())
}

// Bus is a redis pub/sub backed change channel. Every writer publishes after
// a successful remote mutation; every loader instance subscribes.
type Bus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewBus returns redis-backed bus.
func NewBus(client *redis.Client, logger *zap.Logger) *Bus {
	return &Bus{client: client, logger: logger}
}

func channel(table string) string {
	return fmt.Sprintf("pos:rowchange:%s", table)
}

// Publish emits the event on the table's channel.
func (b *Bus) Publish(ctx context.Context, event RowEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("push: encode event: %w", err)
	}
	return b.client.Publish(ctx, channel(event.Table), data).Err()
}

// Subscribe returns a channel of events for the table and a cancel func.
// Undecodable payloads are logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, table string) (<-chan RowEvent, func()) {
	sub := b.client.Subscribe(ctx, channel(table))
	out := make(chan RowEvent, 16)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event RowEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("push: dropped undecodable event",
					zap.String("table", table), zap.Error(err))
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
