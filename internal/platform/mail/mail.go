// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional email.

Two [Sender] implementations are provided:

  - [SMTPSender]: RFC 5322 plain-text message over SMTP with PLAIN auth.
  - [LogSender]: writes the message to the structured log. Used when no
    SMTP host is configured (local development, tests).

[OTPMailer] composes the verification-code message on top of a Sender.
*/
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is one plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a [Message].
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// # SMTP

// SMTPConfig holds the relay address and credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	config   SMTPConfig
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an [SMTPSender].
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config, sendMail: smtp.SendMail}
}

// Send implements [Sender].
//
// net/smtp has no context support; the call is abandoned, not aborted, when
// ctx ends first.
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	if strings.ContainsAny(message.To, "\r\n") || strings.ContainsAny(message.Subject, "\r\n") {
		return fmt.Errorf("mail: header injection in message to %q", message.To)
	}

	addr := net.JoinHostPort(sender.config.Host, strconv.Itoa(sender.config.Port))

	var auth smtp.Auth
	if sender.config.User != "" {
		auth = smtp.PlainAuth("", sender.config.User, sender.config.Password, sender.config.Host)
	}

	payload := sender.compose(message)

	done := make(chan error, 1)
	go func() {
		done <- sender.sendMail(addr, auth, sender.config.From, []string{message.To}, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: smtp delivery failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail: smtp delivery abandoned: %w", ctx.Err())
	}
}

// compose builds the wire message. Header lines end with CRLF and a blank
// line separates them from the body.
func (sender *SMTPSender) compose(message Message) []byte {
	lines := []string{
		"From: " + sender.config.From,
		"To: " + message.To,
		"Subject: " + message.Subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		strings.ReplaceAll(message.Body, "\n", "\r\n"),
	}
	return []byte(strings.Join(lines, "\r\n"))
}

// # Log

// LogSender records messages in the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements [Sender].
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	sender.logger.InfoContext(ctx, "mail_logged",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}

// # Templates

// OTPMailer sends verification codes.
type OTPMailer struct {
	sender  Sender
	appName string
	ttl     time.Duration
}

// NewOTPMailer creates an [OTPMailer].
func NewOTPMailer(sender Sender, appName string, ttl time.Duration) *OTPMailer {
	return &OTPMailer{sender: sender, appName: appName, ttl: ttl}
}

// SendOTP mails code to the address.
func (mailer *OTPMailer) SendOTP(ctx context.Context, to, code string) error {
	minutes := int(mailer.ttl.Minutes())

	return mailer.sender.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("%s - Your OTP Code", mailer.appName),
		Body: fmt.Sprintf(
			"Hello,\n\n"+
				"Your %s verification code is %s. It expires in %d minutes.\n\n"+
				"If you did not request this code, you can ignore this email.\n\n"+
				"The %s Team",
			mailer.appName, code, minutes, mailer.appName),
	})
}
