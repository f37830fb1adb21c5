package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkline-labs/inkline/internal/blame"
)

const publishTimeout = 5 * time.Second

var errMissingDispatcher = errors.New("realtime: local dispatcher required")

// RedisBridgeConfig describes the pub/sub channel shared between replicas.
type RedisBridgeConfig struct {
	Client *redis.Client
	Topic  string
	Local  *Dispatcher
	Logger *zap.Logger
}

// RedisBridge replaces direct local dispatch when several API replicas share
// one store. Events are published to a Redis channel; Run subscribes to the
// same channel and feeds every received event, including this replica's own,
// into the local dispatcher. SSE subscribers therefore see saves made
// anywhere.
type RedisBridge struct {
	client *redis.Client
	topic  string
	local  *Dispatcher
	logger *zap.Logger
}

// NewRedisBridge validates the configuration and constructs the bridge.
func NewRedisBridge(cfg RedisBridgeConfig) (*RedisBridge, error) {
	if cfg.Client == nil {
		return nil, errors.New("realtime: redis client required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("realtime: redis topic required")
	}
	if cfg.Local == nil {
		return nil, errMissingDispatcher
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client: cfg.Client,
		topic:  cfg.Topic,
		local:  cfg.Local,
		logger: logger,
	}, nil
}

// PublishNoteUpdated sends the event to the shared channel. It satisfies the
// blame store's notification port; delivery to local subscribers happens via
// the Run loop.
func (b *RedisBridge) PublishNoteUpdated(event blame.NoteUpdatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, b.topic, payload).Err()
}

// Run consumes the shared channel until the context ends, dispatching every
// decoded event locally. Malformed payloads are logged and dropped.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.topic)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message, ok := <-pubsub.Channel():
			if !ok {
				return nil
			}
			var event blame.NoteUpdatedEvent
			if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
				b.logger.Warn("realtime bridge dropped malformed payload",
					zap.String("topic", b.topic),
					zap.Error(err))
				continue
			}
			_ = b.local.PublishNoteUpdated(event)
		}
	}
}
