package postgres

import (
	"context"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// deviceRepository implements the repository.DeviceRepository interface.
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &deviceRepository{
		db: db,
	}
}

// Create persists a new device for a user.
func (repo *deviceRepository) Create(ctx context.Context, device *entity.Device) error {
	deviceM := fromDeviceDomain(device)

	if err := repo.db.WithContext(ctx).Create(deviceM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrUserNotFound, "invalid user reference")
		}

		return errors.Wrap(err, "failed to create device")
	}

	device.ID = deviceM.ID
	device.CreatedAt = deviceM.CreatedAt

	return nil
}

// FindByID retrieves a device by its unique ID.
func (repo *deviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Device, error) {
	var deviceM model.DeviceModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&deviceM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrDeviceNotFound
		}

		return nil, errors.Wrap(err, "failed to find device by ID")
	}

	return toDeviceDomain(&deviceM), nil
}

// Touch stores the latest client metadata of a device that was issued a new token pair.
func (repo *deviceRepository) Touch(ctx context.Context, id uuid.UUID, ip, userAgent string, at time.Time) error {
	return repo.update(ctx, id, map[string]any{
		"ip":          ip,
		"user_agent":  userAgent,
		"last_active": at,
	})
}

// Deactivate marks the device as logged out.
func (repo *deviceRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return repo.update(ctx, id, map[string]any{"is_active": false})
}

// ListActiveByUser returns the user's active devices, most recently used first.
func (repo *deviceRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error) {
	var deviceMs []model.DeviceModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_active DESC").
		Find(&deviceMs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	devices := make([]*entity.Device, 0, len(deviceMs))
	for i := range deviceMs {
		devices = append(devices, toDeviceDomain(&deviceMs[i]))
	}

	return devices, nil
}

// DeactivateByUser logs out the user's active devices, leaving keep untouched when set.
func (repo *deviceRepository) DeactivateByUser(ctx context.Context, userID, keep uuid.UUID) (int64, error) {
	query := repo.db.WithContext(ctx).
		Model(&model.DeviceModel{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if keep != uuid.Nil {
		query = query.Where("id <> ?", keep)
	}

	result := query.Update("is_active", false)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to deactivate devices")
	}

	return result.RowsAffected, nil
}

func (repo *deviceRepository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	result := repo.db.WithContext(ctx).
		Model(&model.DeviceModel{}).
		Where("id = ?", id).
		Updates(values)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update device")
	}

	if result.RowsAffected == 0 {
		return repository.ErrDeviceNotFound
	}

	return nil
}

// --- Mapper Functions ---

func toDeviceDomain(data *model.DeviceModel) *entity.Device {
	if data == nil {
		return nil
	}

	return &entity.Device{
		ID:         data.ID,
		UserID:     data.UserID,
		UserAgent:  data.UserAgent,
		IP:         data.IP,
		LastActive: data.LastActive,
		IsActive:   data.IsActive,
		CreatedAt:  data.CreatedAt,
	}
}

func fromDeviceDomain(data *entity.Device) *model.DeviceModel {
	if data == nil {
		return nil
	}

	return &model.DeviceModel{
		ID:         data.ID,
		UserID:     data.UserID,
		UserAgent:  data.UserAgent,
		IP:         data.IP,
		LastActive: data.LastActive,
		IsActive:   data.IsActive,
		CreatedAt:  data.CreatedAt,
	}
}
