// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestSender(t *testing.T, fail error) (*SMTPSender, *captured) {
	t.Helper()
	sent := &captured{}
	sender := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: 587, User: "bot", Password: "pw", From: "no-reply@feedbackhub.app"})
	sender.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent.addr, sent.from, sent.to, sent.msg = addr, from, to, string(msg)
		return fail
	}
	return sender, sent
}

func TestSMTPSender_Send(t *testing.T) {
	sender, sent := newTestSender(t, nil)

	err := sender.Send(context.Background(), Message{To: "ann@x.com", Subject: "Hi", Body: "line1\nline2"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.test:587", sent.addr)
	assert.Equal(t, "no-reply@feedbackhub.app", sent.from)
	assert.Equal(t, []string{"ann@x.com"}, sent.to)
	assert.Contains(t, sent.msg, "Subject: Hi\r\n")
	assert.Contains(t, sent.msg, "\r\n\r\nline1\r\nline2")
}

func TestSMTPSender_Failure(t *testing.T) {
	sender, _ := newTestSender(t, errors.New("550 mailbox unavailable"))

	err := sender.Send(context.Background(), Message{To: "ann@x.com", Subject: "Hi"})
	assert.ErrorContains(t, err, "550")
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	sender, sent := newTestSender(t, nil)

	err := sender.Send(context.Background(), Message{To: "ann@x.com\r\nBcc: all@x.com", Subject: "Hi"})
	assert.Error(t, err)
	assert.Empty(t, sent.to)
}

func TestSMTPSender_ContextCancelled(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: 25})
	release := make(chan struct{})
	defer close(release)
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sender.Send(ctx, Message{To: "ann@x.com", Subject: "Hi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOTPMailer(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))
	mailer := NewOTPMailer(NewLogSender(logger), "FeedbackHub", 5*time.Minute)

	require.NoError(t, mailer.SendOTP(context.Background(), "ann@x.com", "123456"))

	assert.Contains(t, buffer.String(), "FeedbackHub - Your OTP Code")
	assert.Contains(t, buffer.String(), "123456")
	assert.Contains(t, buffer.String(), "expires in 5 minutes")
}
