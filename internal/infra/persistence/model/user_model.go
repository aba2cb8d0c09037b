package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserModel mirrors the 'users' table. Email is unique among rows where deleted_at is null.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string    `gorm:"type:varchar(255);not null"`
	Name         string    `gorm:"type:varchar(100);not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	PhoneNumber  string    `gorm:"type:varchar(50);not null;default:''"`
	Avatar       *string   `gorm:"type:varchar(1000)"`
	TOTPSecret   *string   `gorm:"column:totp_secret;type:varchar(255)"`
	Status       string    `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	RoleID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`

	Role *RoleModel `gorm:"foreignKey:RoleID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
