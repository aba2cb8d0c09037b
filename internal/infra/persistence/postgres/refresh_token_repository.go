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
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// refreshTokenRepository implements the domain.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create persists a new refresh token, representing a user session.
func (repo *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := fromRefreshTokenDomain(token)

	if err := repo.db.WithContext(ctx).Omit("User").Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrRefreshTokenAlreadyExists
		}
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrDeviceNotFound, "invalid user or device reference")
		}

		return errors.Wrap(err, "failed to create refresh token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindByTokenHash reads from the primary so a token issued a moment ago is always visible.
func (repo *refreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel

	if err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Preload("User.Role").
		Where("token_hash = ?", tokenHash).
		First(&tokenM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find refresh token")
	}

	return toRefreshTokenDomain(&tokenM), nil
}

// DeleteByTokenHash issues a single DELETE ... RETURNING. Concurrent deleters of the same row
// serialize on its lock and the loser observes zero affected rows.
func (repo *refreshTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	var deleted []model.RefreshTokenModel

	result := repo.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("token_hash = ?", tokenHash).
		Delete(&deleted)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to delete refresh token")
	}

	if result.RowsAffected == 0 || len(deleted) == 0 {
		return nil, repository.ErrRefreshTokenNotFound
	}

	return toRefreshTokenDomain(&deleted[0]), nil
}

// DeleteExpired removes every token that expired before the given instant.
func (repo *refreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&model.RefreshTokenModel{})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete expired refresh tokens")
	}

	return result.RowsAffected, nil
}

// DeleteByDevice removes every token issued to the device.
func (repo *refreshTokenRepository) DeleteByDevice(ctx context.Context, deviceID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Delete(&model.RefreshTokenModel{})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete device refresh tokens")
	}

	return result.RowsAffected, nil
}

// DeleteByUser removes the user's tokens, sparing those of keepDeviceID when set.
func (repo *refreshTokenRepository) DeleteByUser(ctx context.Context, userID, keepDeviceID uuid.UUID) (int64, error) {
	query := repo.db.WithContext(ctx).Where("user_id = ?", userID)
	if keepDeviceID != uuid.Nil {
		query = query.Where("device_id <> ?", keepDeviceID)
	}

	result := query.Delete(&model.RefreshTokenModel{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete user refresh tokens")
	}

	return result.RowsAffected, nil
}

// --- Mapper Functions ---

func toRefreshTokenDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	if data == nil {
		return nil
	}

	return &entity.RefreshToken{
		ID:        data.ID,
		TokenHash: data.TokenHash,
		UserID:    data.UserID,
		DeviceID:  data.DeviceID,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
		User:      toUserDomain(data.User),
	}
}

func fromRefreshTokenDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	if data == nil {
		return nil
	}

	return &model.RefreshTokenModel{
		ID:        data.ID,
		TokenHash: data.TokenHash,
		UserID:    data.UserID,
		DeviceID:  data.DeviceID,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}
