// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/feedbackhub/internal/platform/constants"
	"github.com/taibuivan/feedbackhub/internal/platform/ctxutil"
)

// Notifier pushes domain events to sockets. Failures are logged, never returned.
//
// Each publish is bounded by a short timeout detached from the caller's
// cancellation, so a slow broker delays a response by at most that long.
type Notifier struct {
	broker  Broker
	timeout time.Duration
}

// NewNotifier creates a [Notifier] publishing through broker.
func NewNotifier(broker Broker) *Notifier {
	return &Notifier{broker: broker, timeout: constants.RealtimePublishTimeout}
}

// OTPVerified tells the user's sockets that their email is now verified.
func (notifier *Notifier) OTPVerified(ctx context.Context, userID, email string) {
	notifier.publish(ctx, UserRoom(userID), EventOTPVerified, OTPVerifiedPayload{
		UserID:  userID,
		Email:   email,
		Message: "Email verified successfully",
	})
}

// NewFeedback tells every admin socket that a feedback item was submitted.
func (notifier *Notifier) NewFeedback(ctx context.Context, payload any) {
	notifier.publish(ctx, constants.RoomAdmins, EventNewFeedback, payload)
}

// Notify sends a notification to one user's sockets.
func (notifier *Notifier) Notify(ctx context.Context, userID, content string) {
	notifier.publish(ctx, UserRoom(userID), EventNotification, NotificationPayload{Content: content})
}

func (notifier *Notifier) publish(ctx context.Context, room, event string, payload any) {
	logger := ctxutil.GetLogger(ctx)

	envelope, err := NewEnvelope(room, event, payload)
	if err != nil {
		logger.ErrorContext(ctx, "realtime_payload_encode_failed", slog.String("event", event), slog.Any("error", err))
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifier.timeout)
	defer cancel()

	if err := notifier.broker.Publish(publishCtx, envelope); err != nil {
		logger.ErrorContext(ctx, "realtime_publish_failed",
			slog.String("event", event),
			slog.String("room", room),
			slog.Any("error", err),
		)
	}
}
