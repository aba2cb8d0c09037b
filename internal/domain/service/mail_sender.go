package service

import "context"

// Mail is a plain text message addressed to a single recipient.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// MailSender delivers mail through whatever transport the deployment configures.
type MailSender interface {
	Send(ctx context.Context, mail *Mail) error
}
