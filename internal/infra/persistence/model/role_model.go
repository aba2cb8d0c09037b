package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleModel mirrors the 'roles' table.
type RoleModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `gorm:"type:varchar(50);not null"`
	Description string    `gorm:"type:text;not null;default:''"`
	IsActive    bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	Permissions []*PermissionModel `gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID"`
}

func (RoleModel) TableName() string {
	return "roles"
}

// PermissionModel mirrors the 'permissions' table. (method, path) is unique among live rows.
type PermissionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `gorm:"type:varchar(100);not null"`
	Description string    `gorm:"type:text;not null;default:''"`
	Module      string    `gorm:"type:varchar(50);not null;default:''"`
	Method      string    `gorm:"type:varchar(10);not null"`
	Path        string    `gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (PermissionModel) TableName() string {
	return "permissions"
}

// RolePermissionModel is the join row of the many-to-many association.
type RolePermissionModel struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (RolePermissionModel) TableName() string {
	return "role_permissions"
}
