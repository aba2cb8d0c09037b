package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel mirrors the 'devices' table: one row per authenticated session channel.
type DeviceModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	UserAgent  string    `gorm:"type:text;not null;default:''"`
	IP         string    `gorm:"type:varchar(64);not null;default:''"`
	LastActive time.Time `gorm:"not null"`
	IsActive   bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (DeviceModel) TableName() string {
	return "devices"
}
