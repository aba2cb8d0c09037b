package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table. Only the SHA-256 digest of a token is stored.
type RefreshTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TokenHash string    `gorm:"type:char(64);unique;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	DeviceID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *UserModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// VerificationCodeModel mirrors the 'verification_codes' table, unique per (email, type).
type VerificationCodeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_verification_codes_email_type"`
	Code      string    `gorm:"type:char(6);not null"`
	Type      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_verification_codes_email_type"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func (VerificationCodeModel) TableName() string {
	return "verification_codes"
}
