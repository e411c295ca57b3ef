// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Broker carries envelopes to every hub that may hold the target room.
type Broker interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// Deliverer is the hub-side sink a broker feeds.
type Deliverer interface {
	Deliver(envelope Envelope) int
}

// # Local Broker

// LocalBroker delivers straight to one in-process hub.
type LocalBroker struct {
	hub Deliverer
}

// NewLocalBroker creates a [LocalBroker] over hub.
func NewLocalBroker(hub Deliverer) *LocalBroker {
	return &LocalBroker{hub: hub}
}

// Publish implements [Broker].
func (broker *LocalBroker) Publish(_ context.Context, envelope Envelope) error {
	broker.hub.Deliver(envelope)
	return nil
}

// # Redis Broker

// RedisBroker fans envelopes out over a Redis pub/sub channel.
type RedisBroker struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewRedisBroker creates a [RedisBroker] on channel.
func NewRedisBroker(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, logger: logger}
}

// Publish implements [Broker].
func (broker *RedisBroker) Publish(ctx context.Context, envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("realtime_envelope_encode_failed: %w", err)
	}

	if err := broker.client.Publish(ctx, broker.channel, payload).Err(); err != nil {
		return fmt.Errorf("realtime_publish_failed: %w", err)
	}
	return nil
}

/*
Listen subscribes to the channel and forwards every envelope to sink until
ctx is cancelled.

The subscription is confirmed before Listen returns, so envelopes published
afterwards are not missed.

Returns:
  - <-chan struct{}: Closed once the forwarding loop has stopped
  - error: Subscription failures
*/
func (broker *RedisBroker) Listen(ctx context.Context, sink Deliverer) (<-chan struct{}, error) {
	subscription := broker.client.Subscribe(ctx, broker.channel)
	if _, err := subscription.Receive(ctx); err != nil {
		_ = subscription.Close()
		return nil, fmt.Errorf("realtime_subscribe_failed: %w", err)
	}

	done := make(chan struct{})
	messages := subscription.Channel()

	go func() {
		defer close(done)
		defer subscription.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}

				var envelope Envelope
				if err := json.Unmarshal([]byte(message.Payload), &envelope); err != nil {
					broker.logger.Warn("realtime_envelope_decode_failed", slog.Any("error", err))
					continue
				}
				sink.Deliver(envelope)
			}
		}
	}()

	broker.logger.Info("realtime_broker_listening", slog.String("channel", broker.channel))
	return done, nil
}
