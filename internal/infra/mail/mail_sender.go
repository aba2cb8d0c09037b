// Package mail delivers transactional mail for the mail worker.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/domain/service"

	"github.com/pkg/errors"
)

// NewMailSender returns an SMTP sender, or a sender that only logs when mail.host is empty.
func NewMailSender(cfg *config.Config, logger *slog.Logger) service.MailSender {
	if cfg.Mail == nil || strings.TrimSpace(cfg.Mail.Host) == "" {
		logger.Warn("mail.host is empty, mail will be logged instead of sent")

		return &logSender{logger: logger}
	}

	return newSMTPSender(cfg.Mail, smtp.SendMail)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
	now      func() time.Time
}

func newSMTPSender(cfg *config.MailConfig, sendMail sendMailFunc) *smtpSender {
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &smtpSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		from:     cfg.From,
		auth:     auth,
		sendMail: sendMail,
		now:      time.Now,
	}
}

// Send hands the message to the relay. smtp.SendMail upgrades to STARTTLS when offered.
func (s *smtpSender) Send(ctx context.Context, m *service.Mail) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "mail send aborted")
	}
	if m == nil || strings.TrimSpace(m.To) == "" {
		return errors.New("mail recipient is required")
	}

	msg := buildMessage(s.from, m, s.now())
	if err := s.sendMail(s.addr, s.auth, s.from, []string{m.To}, msg); err != nil {
		return errors.Wrap(err, "failed to send mail")
	}

	return nil
}

func buildMessage(from string, m *service.Mail, at time.Time) []byte {
	var buf bytes.Buffer

	headers := [][2]string{
		{"From", from},
		{"To", m.To},
		{"Subject", mime.QEncoding.Encode("utf-8", m.Subject)},
		{"Date", at.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))

	return buf.Bytes()
}

type logSender struct {
	logger *slog.Logger
}

func (s *logSender) Send(ctx context.Context, m *service.Mail) error {
	s.logger.InfoContext(ctx, "Mail not sent, no SMTP relay configured",
		slog.String("to", m.To),
		slog.String("subject", m.Subject),
	)

	return nil
}
