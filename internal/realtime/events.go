// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package realtime delivers server-pushed events to authenticated websocket
connections.

# Architecture

  - Hub (hub.go): rooms of local connections, guarded by a mutex.
  - Client (client.go): one socket with a read pump and a write pump.
  - Broker (broker.go): how envelopes reach hubs. [LocalBroker] delivers in
    process; [RedisBroker] fans out over Redis pub/sub so every API replica
    reaches its own sockets.
  - Notifier (notifier.go): the fire-and-forget surface used by services.
  - Delivery (http.go): the authenticated upgrade endpoint.

Every socket joins "user:<id>"; ADMIN sockets also join "admins".
*/
package realtime

import (
	"encoding/json"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
)

// # Event Names

const (
	EventOTPVerified  = "otp-verified"
	EventNewFeedback  = "new-feedback"
	EventNotification = "notification"
	EventMessage      = "message"
	EventError        = "error"
)

// Frame is the JSON shape of every websocket message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is a frame addressed to a room. It is what brokers carry.
type Envelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for room.
func NewEnvelope(room, event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Room: room, Event: event, Data: data}, nil
}

// UserRoom names the private room of a user.
func UserRoom(userID string) string {
	return constants.RoomUserPrefix + userID
}

// # Payloads

// OTPVerifiedPayload is pushed to the user's room once their email is verified.
type OTPVerifiedPayload struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// MessagePayload is relayed from any socket to the admins room.
type MessagePayload struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

// NotificationPayload is relayed to a single user's room.
type NotificationPayload struct {
	Content string `json:"content"`
}

type inboundMessage struct {
	Content string `json:"content"`
}

type inboundNotification struct {
	ToUserID string `json:"toUserId"`
	Content  string `json:"content"`
}
