// Package events announces committed blocks to other processes.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "newsledger:blocks"

// BlockEvent describes a block that was just committed.
type BlockEvent struct {
	NodeID     string  `json:"node_id"`
	BlockIndex int     `json:"block_index"`
	BlockHash  string  `json:"block_hash"`
	Timestamp  float64 `json:"timestamp"`
	Verdict    string  `json:"verdict"`
	Signature  string  `json:"signature,omitempty"`
}

// Publisher delivers block events.
type Publisher interface {
	Publish(ctx context.Context, event BlockEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, BlockEvent) error { return nil }
func (Nop) Close() error                              { return nil }

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// DialRedis creates a client for addr and wraps it.
func DialRedis(addr, channel string) *RedisPublisher {
	return NewRedisPublisher(redis.NewClient(&redis.Options{Addr: addr}), channel)
}

// Publish sends the event. It returns the Redis error, if any.
func (p *RedisPublisher) Publish(ctx context.Context, event BlockEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing block %d on %s: %w", event.BlockIndex, p.channel, err)
	}
	return nil
}

// Ping checks that the Redis server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
