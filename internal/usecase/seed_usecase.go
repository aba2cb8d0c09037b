package usecase

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/pkg/errors"
)

// RouteGrant is one protected route and the base roles allowed to call it.
type RouteGrant struct {
	Name   string
	Module string
	Method entity.HTTPMethod
	Path   string
	Roles  []string
}

// SeedInput describes the initial data set.
type SeedInput struct {
	AdminName        string
	AdminEmail       string
	AdminPassword    string
	AdminPhoneNumber string
	Routes           []RouteGrant
}

// SeedOutput reports what was created.
type SeedOutput struct {
	Roles       int
	Permissions int
	Admin       *UserOutput
}

// SyncOutput reports the permission rows a sync added.
type SyncOutput struct {
	Created int
}

// SeedUsecase bootstraps an empty database and keeps its route permissions current.
type SeedUsecase interface {
	Seed(ctx context.Context, input *SeedInput) (*SeedOutput, error)

	// SyncPermissions adds the permission rows and grants of routes registered after the
	// database was seeded. Rows and grants already present are left untouched.
	SyncPermissions(ctx context.Context, routes []RouteGrant) (*SyncOutput, error)
}

// ErrAlreadySeeded is returned when the database already holds roles.
var ErrAlreadySeeded = errors.New("roles already exist")
