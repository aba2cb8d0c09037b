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

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID, preloading the role.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(ctx, "id = ?", id)
}

// FindByEmail retrieves a single user by email, preloading the role.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return repo.findOne(ctx, "email = ?", email)
}

func (repo *userRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var userM model.UserModel

	if err := repo.db.WithContext(ctx).
		Preload("Role").
		Where(query, arg).
		First(&userM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user. The unique index on email decides races between concurrent sign-ups.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Omit("Role").Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrUserAlreadyExists
		}
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrRoleNotFound, "invalid role reference")
		}

		return errors.Wrap(err, "failed to create user")
	}

	user.ID = userM.ID
	user.Status = entity.UserStatus(userM.Status)
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// UpdatePassword replaces the stored bcrypt hash.
func (repo *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return repo.updateColumn(ctx, id, "password_hash", passwordHash)
}

// SetTOTPSecret is a conditional UPDATE; the row lock orders concurrent setups and the
// loser matches no row.
func (repo *userRepository) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ? AND totp_secret IS NULL", id).
		Updates(map[string]any{
			"totp_secret": secret,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to set user totp_secret")
	}

	if result.RowsAffected == 0 {
		return repository.ErrTOTPSecretAlreadySet
	}

	return nil
}

// ClearTOTPSecret unbinds the authenticator secret.
func (repo *userRepository) ClearTOTPSecret(ctx context.Context, id uuid.UUID) error {
	return repo.updateColumn(ctx, id, "totp_secret", gorm.Expr("NULL"))
}

func (repo *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			column:       value,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to update user %s", column)
	}

	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// --- Mapper Functions ---

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		Name:         data.Name,
		PasswordHash: data.PasswordHash,
		PhoneNumber:  data.PhoneNumber,
		Avatar:       data.Avatar,
		TOTPSecret:   data.TOTPSecret,
		Status:       entity.UserStatus(data.Status),
		RoleID:       data.RoleID,
		Role:         toRoleDomain(data.Role),
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
		DeletedAt:    deletedAtPtr(data.DeletedAt),
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	status := string(data.Status)
	if status == "" {
		status = string(entity.UserStatusActive)
	}

	return &model.UserModel{
		ID:           data.ID,
		Email:        data.Email,
		Name:         data.Name,
		PasswordHash: data.PasswordHash,
		PhoneNumber:  data.PhoneNumber,
		Avatar:       data.Avatar,
		TOTPSecret:   data.TOTPSecret,
		Status:       status,
		RoleID:       data.RoleID,
	}
}
