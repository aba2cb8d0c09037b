package repository

import (
	"context"
	"time"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrDeviceNotFound is returned when a device is not found.
var ErrDeviceNotFound = notFound("device")

// DeviceRepository defines persistence operations for session devices.
type DeviceRepository interface {
	// Create persists a new device and fills its generated ID.
	Create(ctx context.Context, device *entity.Device) error

	// FindByID retrieves a device.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Device, error)

	// Touch records the latest client metadata and activity time of a device.
	Touch(ctx context.Context, id uuid.UUID, ip, userAgent string, at time.Time) error

	// Deactivate marks a device as logged out.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// ListActiveByUser returns the user's active devices, most recently used first.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error)

	// DeactivateByUser logs out every active device of the user except keep, which may be
	// uuid.Nil, and returns how many devices it changed.
	DeactivateByUser(ctx context.Context, userID, keep uuid.UUID) (int64, error)
}
