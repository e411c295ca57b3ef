// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub tracks which local clients sit in which rooms.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *slog.Logger
}

// NewHub creates an empty [Hub].
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{}), logger: logger}
}

func (hub *Hub) join(client *Client, rooms ...string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for _, room := range rooms {
		members, ok := hub.rooms[room]
		if !ok {
			members = make(map[*Client]struct{})
			hub.rooms[room] = members
		}
		members[client] = struct{}{}
	}
	client.rooms = rooms
}

func (hub *Hub) leave(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for _, room := range client.rooms {
		members := hub.rooms[room]
		delete(members, client)
		if len(members) == 0 {
			delete(hub.rooms, room)
		}
	}
}

// RoomSize reports how many local clients are in room.
func (hub *Hub) RoomSize(room string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.rooms[room])
}

/*
Deliver writes the envelope to every local client in its room.

A client whose send queue is full misses the frame; delivery never blocks.

Returns:
  - int: Number of clients the frame was queued for
*/
func (hub *Hub) Deliver(envelope Envelope) int {
	frame, err := json.Marshal(Frame{Event: envelope.Event, Data: envelope.Data})
	if err != nil {
		hub.logger.Error("realtime_frame_encode_failed", slog.String("event", envelope.Event), slog.Any("error", err))
		return 0
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	delivered := 0
	for client := range hub.rooms[envelope.Room] {
		if client.enqueue(frame) {
			delivered++
			continue
		}
		hub.logger.Warn("realtime_send_queue_full",
			slog.String("user_id", client.identity.UserID),
			slog.String("event", envelope.Event),
		)
	}
	return delivered
}
