// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/ratelimit"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

// Client is one authenticated websocket connection.
//
// Only the read pump touches the event limiter; only the write pump writes to conn.
type Client struct {
	hub      *Hub
	broker   Broker
	conn     *websocket.Conn
	identity sec.Identity
	logger   *slog.Logger

	rooms    []string
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once

	// events holds one fixed window per event name, opened by its first use.
	events *ratelimit.MemoryLimiter
}

func newClient(hub *Hub, broker Broker, conn *websocket.Conn, identity sec.Identity, logger *slog.Logger) *Client {
	return &Client{
		hub:      hub,
		broker:   broker,
		conn:     conn,
		identity: identity,
		logger:   logger,
		send:     make(chan []byte, constants.SocketSendBuffer),
		done:     make(chan struct{}),
		events:   ratelimit.NewMemoryLimiter(constants.SocketEventsPerMinute, time.Minute),
	}
}

// enqueue queues a frame without blocking. It reports false when the client
// is gone or its queue is full.
func (client *Client) enqueue(frame []byte) bool {
	select {
	case <-client.done:
		return false
	default:
	}

	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

func (client *Client) stop() {
	client.stopOnce.Do(func() { close(client.done) })
}

// allow counts one event against its per-minute budget.
func (client *Client) allow(event string) bool {
	allowed, _, _ := client.events.Allow(context.Background(), event)
	return allowed
}

func (client *Client) sendError(message string) {
	data, _ := json.Marshal(message)
	frame, _ := json.Marshal(Frame{Event: EventError, Data: data})
	client.enqueue(frame)
}

// # Pumps

// readPump consumes inbound frames until the peer goes away, then leaves the hub.
func (client *Client) readPump() {
	defer func() {
		client.hub.leave(client)
		client.stop()
		_ = client.conn.Close()
		client.logger.Info("realtime_disconnected")
	}()

	client.conn.SetReadLimit(constants.SocketMaxMessageBytes)
	_ = client.conn.SetReadDeadline(time.Now().Add(constants.SocketPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(constants.SocketPongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Warn("realtime_read_failed", slog.Any("error", err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			client.sendError("Invalid message")
			continue
		}

		if !client.allow(frame.Event) {
			client.sendError("Rate limit exceeded")
			continue
		}

		client.dispatch(frame)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (client *Client) writePump() {
	ticker := time.NewTicker(constants.SocketPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case frame := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(constants.SocketWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				client.stop()
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(constants.SocketWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.stop()
				return
			}

		case <-client.done:
			_ = client.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(constants.SocketWriteWait))
			return
		}
	}
}

// # Inbound Events

func (client *Client) dispatch(frame Frame) {
	var (
		envelope Envelope
		err      error
	)

	switch frame.Event {
	case EventMessage:
		var input inboundMessage
		if json.Unmarshal(frame.Data, &input) != nil {
			client.sendError("Invalid message")
			return
		}
		envelope, err = NewEnvelope(constants.RoomAdmins, EventMessage,
			MessagePayload{From: client.identity.UserID, Content: input.Content})

	case EventNotification:
		var input inboundNotification
		if json.Unmarshal(frame.Data, &input) != nil {
			client.sendError("Invalid message")
			return
		}
		if input.ToUserID == "" {
			return
		}
		envelope, err = NewEnvelope(UserRoom(input.ToUserID), EventNotification,
			NotificationPayload{Content: input.Content})

	default:
		client.logger.Debug("realtime_unknown_event", slog.String("event", frame.Event))
		return
	}

	if err == nil {
		err = client.broker.Publish(context.Background(), envelope)
	}
	if err != nil {
		client.logger.Error("realtime_publish_failed", slog.String("event", frame.Event), slog.Any("error", err))
	}
}
