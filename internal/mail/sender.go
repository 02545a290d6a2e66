// Package mail delivers one-time verification codes by email.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"gwi.com/prompt-relay/internal/common"
)

type Sender interface {
	SendOTP(ctx context.Context, to string, code int) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPSender) SendOTP(ctx context.Context, to string, code int) error {
	msg, err := newOTPMessage(s.from, to, code)
	if err != nil {
		return err
	}

	opts := []gomail.Option{gomail.WithPort(s.port)}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}
	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func newOTPMessage(from, to string, code int) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Your verification code")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf("Your verification code is %06d.\n", code))
	return msg, nil
}

// UnconfiguredSender is used when no SMTP server is configured. Every send
// fails so registration reports the problem instead of silently stalling.
type UnconfiguredSender struct{}

func (UnconfiguredSender) SendOTP(context.Context, string, int) error {
	return fmt.Errorf("email delivery: %w", common.ErrNotConfigured)
}
