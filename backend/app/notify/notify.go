package notify

import (
	"context"
	"encoding/json"
	"time"

	"growlink/backend/app/models"
	"growlink/backend/global"

	"github.com/redis/go-redis/v9"
)

// Notifier receives command terminal transitions. The hook fires at most
// once per transition, synchronously with the state change; subscribers
// that need more than that must re-read the queue.
type Notifier interface {
	CommandFinished(cmd *models.Command)
}

type Nop struct{}

func (Nop) CommandFinished(*models.Command) {}

type commandEvent struct {
	CommandID     uint   `json:"command_id"`
	DeviceID      uint   `json:"device_id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	ResultMessage string `json:"result_message,omitempty"`
	CompletedAt   int64  `json:"completed_at"`
}

// RedisNotifier publishes terminal transitions on a pub/sub channel for
// dashboards and schedulers. Publish failures are logged, never surfaced:
// the state change has already committed.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) CommandFinished(cmd *models.Command) {
	ev := commandEvent{
		CommandID:     cmd.ID,
		DeviceID:      cmd.DeviceID,
		Type:          cmd.Type,
		Status:        cmd.Status,
		ResultMessage: cmd.ResultMessage,
	}
	if cmd.CompletedAt != nil {
		ev.CompletedAt = cmd.CompletedAt.Unix()
	}
	payload, _ := json.Marshal(ev)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		global.Logger.Warn().Err(err).Uint("command", cmd.ID).Msg("command event publish failed")
	}
}
