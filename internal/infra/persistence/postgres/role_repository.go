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

// roleRepository implements the repository.RoleRepository interface.
type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository is the constructor for roleRepository.
func NewRoleRepository(db *gorm.DB) repository.RoleRepository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *roleRepository) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	return repo.findOne(ctx, "name = ?", name)
}

func (repo *roleRepository) findOne(ctx context.Context, query string, arg any) (*entity.Role, error) {
	var roleM model.RoleModel

	if err := repo.db.WithContext(ctx).Where(query, arg).First(&roleM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrRoleNotFound
		}

		return nil, errors.Wrap(err, "failed to find role")
	}

	return toRoleDomain(&roleM), nil
}

// FindActiveWithPermission is the per-request authorization lookup. It runs against a replica
// and preloads only the permission rows matching the route.
func (repo *roleRepository) FindActiveWithPermission(
	ctx context.Context,
	roleID uuid.UUID,
	method entity.HTTPMethod,
	path string,
) (*entity.Role, error) {
	var roleM model.RoleModel

	if err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Read).
		Preload("Permissions", "method = ? AND path = ?", string(method), path).
		Where("id = ? AND is_active = ?", roleID, true).
		First(&roleM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrRoleNotFound
		}

		return nil, errors.Wrap(err, "failed to find role with permission")
	}

	return toRoleDomain(&roleM), nil
}

// Count includes soft-deleted roles so a wiped-but-seeded database is not seeded twice.
func (repo *roleRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := repo.db.WithContext(ctx).
		Unscoped().
		Model(&model.RoleModel{}).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count roles")
	}

	return count, nil
}

func (repo *roleRepository) Create(ctx context.Context, role *entity.Role) error {
	roleM := fromRoleDomain(role)

	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(roleM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrRoleAlreadyExists
		}

		return errors.Wrap(err, "failed to create role")
	}

	role.ID = roleM.ID
	role.IsActive = roleM.IsActive
	role.CreatedAt = roleM.CreatedAt
	role.UpdatedAt = roleM.UpdatedAt

	return nil
}

// GrantPermissions inserts join rows, skipping grants that already exist.
func (repo *roleRepository) GrantPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	rows := make([]model.RolePermissionModel, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, model.RolePermissionModel{RoleID: roleID, PermissionID: id})
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrPermissionNotFound, "invalid role or permission reference")
		}

		return errors.Wrap(err, "failed to grant permissions")
	}

	return nil
}

// permissionRepository implements the repository.PermissionRepository interface.
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository is the constructor for permissionRepository.
func NewPermissionRepository(db *gorm.DB) repository.PermissionRepository {
	return &permissionRepository{db: db}
}

func (repo *permissionRepository) FindByRoute(ctx context.Context, method entity.HTTPMethod, path string) (*entity.Permission, error) {
	var permissionM model.PermissionModel

	if err := repo.db.WithContext(ctx).
		Where("method = ? AND path = ?", string(method), path).
		First(&permissionM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, repository.ErrPermissionNotFound
		}

		return nil, errors.Wrap(err, "failed to find permission")
	}

	return toPermissionDomain(&permissionM), nil
}

func (repo *permissionRepository) Create(ctx context.Context, permission *entity.Permission) error {
	permissionM := fromPermissionDomain(permission)

	if err := repo.db.WithContext(ctx).Create(permissionM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrPermissionAlreadyExists
		}

		return errors.Wrap(err, "failed to create permission")
	}

	permission.ID = permissionM.ID
	permission.CreatedAt = permissionM.CreatedAt
	permission.UpdatedAt = permissionM.UpdatedAt

	return nil
}

// --- Mapper Functions ---

func toRoleDomain(data *model.RoleModel) *entity.Role {
	if data == nil {
		return nil
	}

	permissions := make([]*entity.Permission, 0, len(data.Permissions))
	for _, p := range data.Permissions {
		permissions = append(permissions, toPermissionDomain(p))
	}

	return &entity.Role{
		ID:          data.ID,
		Name:        data.Name,
		Description: data.Description,
		IsActive:    data.IsActive,
		Permissions: permissions,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
		DeletedAt:   deletedAtPtr(data.DeletedAt),
	}
}

func fromRoleDomain(data *entity.Role) *model.RoleModel {
	if data == nil {
		return nil
	}

	return &model.RoleModel{
		ID:          data.ID,
		Name:        data.Name,
		Description: data.Description,
		IsActive:    data.IsActive,
	}
}

func toPermissionDomain(data *model.PermissionModel) *entity.Permission {
	if data == nil {
		return nil
	}

	return &entity.Permission{
		ID:          data.ID,
		Name:        data.Name,
		Description: data.Description,
		Module:      data.Module,
		Method:      entity.HTTPMethod(data.Method),
		Path:        data.Path,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
		DeletedAt:   deletedAtPtr(data.DeletedAt),
	}
}

func fromPermissionDomain(data *entity.Permission) *model.PermissionModel {
	if data == nil {
		return nil
	}

	return &model.PermissionModel{
		ID:          data.ID,
		Name:        data.Name,
		Description: data.Description,
		Module:      data.Module,
		Method:      string(data.Method),
		Path:        data.Path,
	}
}

func deletedAtPtr(deletedAt gorm.DeletedAt) *time.Time {
	if !deletedAt.Valid {
		return nil
	}
	t := deletedAt.Time

	return &t
}
