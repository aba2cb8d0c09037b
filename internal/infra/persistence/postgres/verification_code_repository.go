package postgres

import (
	"context"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// verificationCodeRepository implements the repository.VerificationCodeRepository interface.
type verificationCodeRepository struct {
	db *gorm.DB
}

// NewVerificationCodeRepository is the constructor for verificationCodeRepository.
func NewVerificationCodeRepository(db *gorm.DB) repository.VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

// Upsert keeps a single outstanding code per (email, type): a newer code replaces the older one.
func (repo *verificationCodeRepository) Upsert(ctx context.Context, code *entity.VerificationCode) error {
	codeM := fromVerificationCodeDomain(code)
	if codeM.CreatedAt.IsZero() {
		codeM.CreatedAt = time.Now()
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "created_at"}),
		}).
		Create(codeM).Error; err != nil {
		return errors.Wrap(err, "failed to upsert verification code")
	}

	code.ID = codeM.ID
	code.CreatedAt = codeM.CreatedAt

	return nil
}

func (repo *verificationCodeRepository) Find(
	ctx context.Context,
	email, code string,
	codeType entity.VerificationCodeType,
) (*entity.VerificationCode, error) {
	var codeM model.VerificationCodeModel

	if err := repo.db.WithContext(ctx).
		Where("email = ? AND code = ? AND type = ?", email, code, string(codeType)).
		First(&codeM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrVerificationCodeNotFound
		}

		return nil, errors.Wrap(err, "failed to find verification code")
	}

	return toVerificationCodeDomain(&codeM), nil
}

// Delete consumes a code. Zero affected rows means it was already consumed or replaced.
func (repo *verificationCodeRepository) Delete(
	ctx context.Context,
	email, code string,
	codeType entity.VerificationCodeType,
) error {
	result := repo.db.WithContext(ctx).
		Where("email = ? AND code = ? AND type = ?", email, code, string(codeType)).
		Delete(&model.VerificationCodeModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete verification code")
	}

	if result.RowsAffected == 0 {
		return repository.ErrVerificationCodeNotFound
	}

	return nil
}

func (repo *verificationCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&model.VerificationCodeModel{})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete expired verification codes")
	}

	return result.RowsAffected, nil
}

// --- Mapper Functions ---

func toVerificationCodeDomain(data *model.VerificationCodeModel) *entity.VerificationCode {
	if data == nil {
		return nil
	}

	return &entity.VerificationCode{
		ID:        data.ID,
		Email:     data.Email,
		Code:      data.Code,
		Type:      entity.VerificationCodeType(data.Type),
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}

func fromVerificationCodeDomain(data *entity.VerificationCode) *model.VerificationCodeModel {
	if data == nil {
		return nil
	}

	return &model.VerificationCodeModel{
		ID:        data.ID,
		Email:     data.Email,
		Code:      data.Code,
		Type:      string(data.Type),
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}
