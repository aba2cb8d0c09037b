package service

import (
	"context"
)

// OTPMailEvent asks the mail worker to deliver a verification code.
type OTPMailEvent struct {
	RequestID string `json:"request_id,omitempty"` // For distributed tracing
	Email     string `json:"email"`
	Code      string `json:"code"`
	Type      string `json:"type"`
	ExpiresAt int64  `json:"expires_at"` // Unix seconds
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishOTPMail publishes a verification code mail for async delivery
	PublishOTPMail(ctx context.Context, event *OTPMailEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
