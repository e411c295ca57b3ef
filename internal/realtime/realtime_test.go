// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/ratelimit"
	"github.com/taibuivan/feedbackhub/internal/platform/sec"
)

var (
	ann   = sec.Identity{UserID: "0190a0b4-ann", Email: "ann@x.com", Role: sec.RoleUser}
	admin = sec.Identity{UserID: "0190a0b4-admin", Email: "root@x.com", Role: sec.RoleAdmin}
)

type realtimeHarness struct {
	hub      *Hub
	notifier *Notifier
	tokens   *sec.TokenService
	server   *httptest.Server
}

func newRealtimeHarness(t *testing.T) *realtimeHarness {
	t.Helper()

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "feedbackhub.test",
	})
	require.NoError(t, err)

	hub := NewHub(slog.Default())
	broker := NewLocalBroker(hub)
	server := httptest.NewServer(NewHandler(hub, broker, tokens, HandlerConfig{}))
	t.Cleanup(server.Close)

	return &realtimeHarness{hub: hub, notifier: NewNotifier(broker), tokens: tokens, server: server}
}

func (h *realtimeHarness) url(token string) string {
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/realtime"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

// connect dials as identity and waits until the hub has registered the socket.
func (h *realtimeHarness) connect(t *testing.T, identity sec.Identity) *websocket.Conn {
	t.Helper()

	token, err := h.tokens.IssueAccessToken(identity)
	require.NoError(t, err)

	conn, response, err := websocket.DefaultDialer.Dial(h.url(token), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, response.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return h.hub.RoomSize(UserRoom(identity.UserID)) > 0
	}, 2*time.Second, 10*time.Millisecond)

	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: raw}))
}

func receive(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

/*
TestHandler_RejectsUnauthenticated answers 401 before any upgrade.
*/
func TestHandler_RejectsUnauthenticated(t *testing.T) {
	h := newRealtimeHarness(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing_token", ""},
		{"invalid_token", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, response, err := websocket.DefaultDialer.Dial(h.url(tt.token), nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, response)
			assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
		})
	}
}

/*
TestHandler_JoinsRooms puts every socket in its user room and admins in the admin room.
*/
func TestHandler_JoinsRooms(t *testing.T) {
	h := newRealtimeHarness(t)

	annConn := h.connect(t, ann)
	assert.Equal(t, 0, h.hub.RoomSize(constants.RoomAdmins))

	// Bearer header instead of the query parameter.
	token, err := h.tokens.IssueAccessToken(admin)
	require.NoError(t, err)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	adminConn, _, err := websocket.DefaultDialer.Dial(h.url(""), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adminConn.Close() })

	require.Eventually(t, func() bool { return h.hub.RoomSize(constants.RoomAdmins) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, annConn.Close())
	require.Eventually(t, func() bool { return h.hub.RoomSize(UserRoom(ann.UserID)) == 0 }, 2*time.Second, 10*time.Millisecond)
}

/*
TestNotifier_OTPVerified reaches only the verified user's sockets.
*/
func TestNotifier_OTPVerified(t *testing.T) {
	h := newRealtimeHarness(t)
	annConn := h.connect(t, ann)
	adminConn := h.connect(t, admin)

	h.notifier.OTPVerified(context.Background(), ann.UserID, ann.Email)

	frame := receive(t, annConn)
	assert.Equal(t, EventOTPVerified, frame.Event)

	var payload OTPVerifiedPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, ann.Email, payload.Email)

	h.notifier.NewFeedback(context.Background(), map[string]string{"id": "fb-1"})
	frame = receive(t, adminConn)
	assert.Equal(t, EventNewFeedback, frame.Event, "admin never saw the otp-verified event")
	assert.JSONEq(t, `{"id":"fb-1"}`, string(frame.Data))
}

/*
TestClient_RelaysMessagesAndNotifications routes inbound events to their rooms.
*/
func TestClient_RelaysMessagesAndNotifications(t *testing.T) {
	h := newRealtimeHarness(t)
	annConn := h.connect(t, ann)
	adminConn := h.connect(t, admin)

	send(t, annConn, EventMessage, map[string]string{"content": "hello"})

	frame := receive(t, adminConn)
	require.Equal(t, EventMessage, frame.Event)
	var message MessagePayload
	require.NoError(t, json.Unmarshal(frame.Data, &message))
	assert.Equal(t, MessagePayload{From: ann.UserID, Content: "hello"}, message)

	send(t, adminConn, EventNotification, map[string]string{"toUserId": ann.UserID, "content": "welcome"})

	frame = receive(t, annConn)
	require.Equal(t, EventNotification, frame.Event)
	assert.JSONEq(t, `{"content":"welcome"}`, string(frame.Data))
}

/*
TestClient_RateLimitPerEvent drops the eleventh event of a kind but keeps the connection.
*/
func TestClient_RateLimitPerEvent(t *testing.T) {
	h := newRealtimeHarness(t)
	annConn := h.connect(t, ann)

	for range constants.SocketEventsPerMinute + 1 {
		send(t, annConn, EventMessage, map[string]string{"content": "spam"})
	}

	frame := receive(t, annConn)
	require.Equal(t, EventError, frame.Event)
	assert.JSONEq(t, `"Rate limit exceeded"`, string(frame.Data))

	// Another event kind has its own budget.
	send(t, annConn, EventNotification, map[string]string{"toUserId": ann.UserID, "content": "still here"})
	frame = receive(t, annConn)
	assert.Equal(t, EventNotification, frame.Event)
}

/*
TestClient_EventWindow holds the budget for a full minute from the first event.
*/
func TestClient_EventWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	current := start

	client := newClient(nil, nil, nil, ann, slog.Default())
	client.events = ratelimit.NewMemoryLimiterWithClock(constants.SocketEventsPerMinute, time.Minute,
		func() time.Time { return current })

	for i := range constants.SocketEventsPerMinute {
		assert.True(t, client.allow(EventMessage), "event %d", i+1)
	}

	accepted := 0
	for offset := 6 * time.Second; offset < time.Minute; offset += 6 * time.Second {
		current = start.Add(offset)
		if client.allow(EventMessage) {
			accepted++
		}
	}
	assert.Zero(t, accepted, "no refill inside the window")
	assert.True(t, client.allow(EventNotification), "other events keep their own window")

	current = start.Add(time.Minute + time.Second)
	assert.True(t, client.allow(EventMessage), "a new window opens after a minute")
}

/*
TestClient_InvalidFrame reports malformed input without disconnecting.
*/
func TestClient_InvalidFrame(t *testing.T) {
	h := newRealtimeHarness(t)
	annConn := h.connect(t, ann)

	require.NoError(t, annConn.WriteMessage(websocket.TextMessage, []byte("{oops")))

	frame := receive(t, annConn)
	assert.Equal(t, EventError, frame.Event)
	assert.JSONEq(t, `"Invalid message"`, string(frame.Data))
}

type recordingSink struct {
	mu        sync.Mutex
	envelopes []Envelope
}

func (sink *recordingSink) Deliver(envelope Envelope) int {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.envelopes = append(sink.envelopes, envelope)
	return 1
}

func (sink *recordingSink) received() []Envelope {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]Envelope(nil), sink.envelopes...)
}

/*
TestRedisBroker_FanOut delivers published envelopes to every listening sink.
*/
func TestRedisBroker_FanOut(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broker := NewRedisBroker(client, constants.RealtimeChannel, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	first, second := &recordingSink{}, &recordingSink{}

	firstDone, err := broker.Listen(ctx, first)
	require.NoError(t, err)
	secondDone, err := broker.Listen(ctx, second)
	require.NoError(t, err)

	envelope, err := NewEnvelope(UserRoom(ann.UserID), EventNotification, NotificationPayload{Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), envelope))

	for _, sink := range []*recordingSink{first, second} {
		require.Eventually(t, func() bool { return len(sink.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
		got := sink.received()[0]
		assert.Equal(t, envelope.Room, got.Room)
		assert.JSONEq(t, `{"content":"hi"}`, string(got.Data))
	}

	cancel()
	for _, done := range []<-chan struct{}{firstDone, secondDone} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("listener did not stop")
		}
	}
}

/*
TestNotifier_SwallowsPublishFailures never surfaces broker errors to the caller.
*/
func TestNotifier_SwallowsPublishFailures(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	server.Close()

	notifier := NewNotifier(NewRedisBroker(client, constants.RealtimeChannel, slog.Default()))

	assert.NotPanics(t, func() {
		notifier.OTPVerified(context.Background(), ann.UserID, ann.Email)
	})
}

type stalledBroker struct {
	hadDeadline bool
}

func (broker *stalledBroker) Publish(ctx context.Context, _ Envelope) error {
	_, broker.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

/*
TestNotifier_BoundsSlowBroker returns once the publish timeout passes, even
when the caller's context never ends.
*/
func TestNotifier_BoundsSlowBroker(t *testing.T) {
	broker := &stalledBroker{}
	notifier := NewNotifier(broker)
	notifier.timeout = 50 * time.Millisecond

	started := time.Now()
	notifier.OTPVerified(context.Background(), ann.UserID, ann.Email)

	assert.True(t, broker.hadDeadline)
	assert.Less(t, time.Since(started), time.Second)
}
