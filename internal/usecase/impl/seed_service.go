package impl

import (
	"context"
	"log/slog"
	"slices"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

var baseRoleDescriptions = map[string]string{
	entity.RoleAdmin:  "Admin role",
	entity.RoleClient: "Client role",
	entity.RoleSeller: "Seller role",
}

// seedService implements the SeedUsecase interface.
type seedService struct {
	txManager repository.TransactionManager
	hasher    service.PasswordHasher
	logger    *slog.Logger
}

// SeedServiceParams holds dependencies for SeedService, injected by Fx.
type SeedServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Hasher    service.PasswordHasher
	Logger    *slog.Logger
}

// NewSeedService is the constructor for seedService.
func NewSeedService(params SeedServiceParams) usecase.SeedUsecase {
	return &seedService{
		txManager: params.TxManager,
		hasher:    params.Hasher,
		logger:    params.Logger,
	}
}

// Seed creates the base roles, one permission per route and the admin account in a single
// transaction. ADMIN is granted every route; other roles only the routes that list them.
func (srv *seedService) Seed(ctx context.Context, input *usecase.SeedInput) (*usecase.SeedOutput, error) {
	if input.AdminEmail == "" || input.AdminPassword == "" {
		return nil, errors.New("admin email and password are required")
	}

	passwordHash, err := srv.hasher.Hash(input.AdminPassword)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash admin password")
	}

	output := &usecase.SeedOutput{}
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		roleRepo := repoFactory.RoleRepo()

		count, err := roleRepo.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return usecase.ErrAlreadySeeded
		}

		roles, err := srv.createBaseRoles(ctx, roleRepo)
		if err != nil {
			return err
		}
		output.Roles = len(roles)

		if _, err := srv.syncPermissions(ctx, repoFactory, roles, input.Routes); err != nil {
			return err
		}
		output.Permissions = len(input.Routes)

		admin := &entity.User{
			Email:        normalizeEmail(input.AdminEmail),
			Name:         input.AdminName,
			PasswordHash: passwordHash,
			PhoneNumber:  input.AdminPhoneNumber,
			Status:       entity.UserStatusActive,
			RoleID:       roles[entity.RoleAdmin].ID,
		}
		if err := repoFactory.UserRepo().Create(ctx, admin); err != nil {
			return errors.Wrap(err, "failed to create admin user")
		}
		output.Admin = usecase.NewUserOutput(admin)

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.logger.InfoContext(ctx, "Database seeded",
		slog.Int("roles", output.Roles),
		slog.Int("permissions", output.Permissions),
		slog.String("admin", output.Admin.Email),
	)

	return output, nil
}

func (srv *seedService) createBaseRoles(ctx context.Context, roleRepo repository.RoleRepository) (map[string]*entity.Role, error) {
	roles := make(map[string]*entity.Role, len(baseRoleDescriptions))

	for _, name := range entity.BaseRoles() {
		role := &entity.Role{
			Name:        name,
			Description: baseRoleDescriptions[name],
			IsActive:    true,
		}
		if err := roleRepo.Create(ctx, role); err != nil {
			return nil, errors.Wrapf(err, "failed to create role %s", name)
		}
		roles[name] = role
	}

	return roles, nil
}

func (srv *seedService) SyncPermissions(ctx context.Context, routes []usecase.RouteGrant) (*usecase.SyncOutput, error) {
	output := &usecase.SyncOutput{}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		roles := make(map[string]*entity.Role, len(baseRoleDescriptions))
		for _, name := range entity.BaseRoles() {
			role, err := repoFactory.RoleRepo().FindByName(ctx, name)
			if err != nil {
				return errors.Wrapf(err, "failed to load role %s", name)
			}
			roles[name] = role
		}

		created, err := srv.syncPermissions(ctx, repoFactory, roles, routes)
		output.Created = created

		return err
	})
	if err != nil {
		return nil, err
	}

	srv.logger.InfoContext(ctx, "Route permissions synced", slog.Int("created", output.Created))

	return output, nil
}

// syncPermissions makes sure every route has a permission row granted to ADMIN and to the
// roles it lists, and returns how many rows it had to create.
func (srv *seedService) syncPermissions(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	roles map[string]*entity.Role,
	routes []usecase.RouteGrant,
) (int, error) {
	grants, created, err := srv.ensurePermissions(ctx, repoFactory.PermissionRepo(), routes)
	if err != nil {
		return 0, err
	}

	for name, permissionIDs := range grants {
		if err := repoFactory.RoleRepo().GrantPermissions(ctx, roles[name].ID, permissionIDs); err != nil {
			return 0, errors.Wrapf(err, "failed to grant permissions to %s", name)
		}
	}

	return created, nil
}

// ensurePermissions returns the permission ids to grant, keyed by role name, creating the
// rows that do not exist yet.
func (srv *seedService) ensurePermissions(
	ctx context.Context,
	permissionRepo repository.PermissionRepository,
	routes []usecase.RouteGrant,
) (map[string][]uuid.UUID, int, error) {
	grants := make(map[string][]uuid.UUID)
	created := 0

	for _, route := range routes {
		if !route.Method.IsValid() {
			return nil, 0, errors.Errorf("invalid method %q for %s", route.Method, route.Path)
		}

		permission, err := permissionRepo.FindByRoute(ctx, route.Method, route.Path)
		if repository.OutcomeOf(err) == repository.OutcomeNotFound {
			permission = &entity.Permission{
				Name:   route.Name,
				Module: route.Module,
				Method: route.Method,
				Path:   route.Path,
			}
			err = permissionRepo.Create(ctx, permission)
			created++
		}
		if err != nil {
			return nil, 0, errors.Wrapf(err, "failed to ensure permission %s %s", route.Method, route.Path)
		}

		grants[entity.RoleAdmin] = append(grants[entity.RoleAdmin], permission.ID)
		for _, roleName := range route.Roles {
			if roleName == entity.RoleAdmin {
				continue
			}
			if !entity.IsBaseRole(roleName) {
				return nil, 0, errors.Errorf("route %s %s grants unknown role %q", route.Method, route.Path, roleName)
			}
			if !slices.Contains(grants[roleName], permission.ID) {
				grants[roleName] = append(grants[roleName], permission.ID)
			}
		}
	}

	return grants, created, nil
}
