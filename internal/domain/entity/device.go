// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Device is one authenticated session channel. A device is created on every login and
// OAuth login, and refreshed in place by token rotation.
type Device struct {
	ID         uuid.UUID // The Global Unique Identifier (GUID) for the device.
	UserID     uuid.UUID // The ID of the user who owns this device.
	UserAgent  string    // Last seen User-Agent header.
	IP         string    // Last seen client IP.
	LastActive time.Time // Last time a token was issued for this device.
	IsActive   bool      // False once the device logged out.
	CreatedAt  time.Time // Timestamp of when this device was first seen.
}
