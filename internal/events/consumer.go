package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamClient is the subset of the Redis client a consumer group needs.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// HarvestHandler reacts to a stored harvest run.
type HarvestHandler interface {
	HandleScheduleHarvested(ctx context.Context, payload *ScheduleHarvestedPayload) error
}

type ConsumerConfig struct {
	Stream   string
	Group    string
	Name     string
	Block    time.Duration
	ErrDelay time.Duration
}

// Consumer reads SCHEDULE_HARVESTED events from a stream consumer group.
// Messages are acknowledged only after the handler succeeds. Failed ones stay
// in the consumer's pending list and are retried the next time Run starts.
type Consumer struct {
	redis   StreamClient
	handler HarvestHandler
	cfg     ConsumerConfig
	logger  *slog.Logger
}

func NewConsumer(client StreamClient, handler HarvestHandler, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	if cfg.Group == "" {
		cfg.Group = "schedule-consumer-group"
	}
	if cfg.Name == "" {
		cfg.Name = "consumer-1"
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.ErrDelay <= 0 {
		cfg.ErrDelay = time.Second
	}
	return &Consumer{
		redis:   client,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With("component", "schedule_consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("starting consumer", "stream", c.cfg.Stream, "group", c.cfg.Group)

	if err := c.retryPending(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    10,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to read from stream", "error", err)
			if err := pause(ctx, c.cfg.ErrDelay); err != nil {
				return err
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

// retryPending replays messages delivered to this consumer but never
// acknowledged. Each one is tried once; failures stay pending.
func (c *Consumer) retryPending(ctx context.Context) error {
	cursor := "0"
	retried := 0
	for {
		streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{c.cfg.Stream, cursor},
			Count:    10,
			Block:    -1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read pending messages: %w", err)
		}

		var batch []redis.XMessage
		for _, stream := range streams {
			batch = append(batch, stream.Messages...)
		}
		if len(batch) == 0 {
			if retried > 0 {
				c.logger.Info("retried pending messages", "count", retried)
			}
			return nil
		}

		for _, msg := range batch {
			c.process(ctx, msg)
			cursor = msg.ID
			retried++
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	if err := c.handle(ctx, msg); err != nil {
		c.logger.Error("failed to process message", "id", msg.ID, "error", err)
		return
	}
	if err := c.redis.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge message", "id", msg.ID, "error", err)
	}
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) error {
	if eventType, _ := msg.Values["event_type"].(string); eventType != string(EventTypeScheduleHarvested) {
		return nil
	}

	payload, err := decodeMessage(msg)
	if err != nil {
		return err
	}

	c.logger.Info("schedule harvested",
		"message_id", msg.ID,
		"run_id", payload.RunID,
		"classes", payload.ClassCount,
	)
	return c.handler.HandleScheduleHarvested(ctx, payload)
}

// decodeMessage reads the payload out of the relay's "data" envelope.
func decodeMessage(msg redis.XMessage) (*ScheduleHarvestedPayload, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing data in event %s", msg.ID)
	}

	var envelope struct {
		Payload ScheduleHarvestedPayload `json:"payload"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse event %s: %w", msg.ID, err)
	}
	if envelope.Payload.RunID == "" {
		return nil, fmt.Errorf("missing run_id in event %s", msg.ID)
	}
	return &envelope.Payload, nil
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
