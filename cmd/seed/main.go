package main

import (
	"context"
	"log/slog"

	"storefront/config"
	"storefront/internal/delivery/api/router"
	"storefront/internal/infra/auth"
	logs "storefront/internal/infra/log"
	"storefront/internal/infra/persistence/postgres"
	"storefront/internal/usecase"
	"storefront/internal/usecase/impl"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type seedParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Config *config.Config
	Logger *slog.Logger
	SeedUC usecase.SeedUsecase
}

func main() {
	fx.New(
		fx.Provide(
			config.New,
			logs.New,
			postgres.New,
			postgres.NewTransactionManager,
			auth.NewBcryptHasher,
			impl.NewSeedService,
		),
		fx.Invoke(runSeed),
	).Run()
}

// runSeed seeds an empty database, or syncs route permissions on a seeded one, then stops the app.
func runSeed(params seedParams) {
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			err := seed(context.Background(), params)

			exitCode := 0
			if err != nil {
				params.Logger.Error("Seeding failed", slog.Any("error", err))
				exitCode = 1
			}

			return errors.WithStack(params.Shutdown(fx.ExitCode(exitCode)))
		},
	})
}

func seed(ctx context.Context, params seedParams) error {
	admin := params.Config.Admin
	if admin == nil {
		return errors.New("admin configuration is missing")
	}

	output, err := params.SeedUC.Seed(ctx, &usecase.SeedInput{
		AdminName:        admin.Name,
		AdminEmail:       admin.Email,
		AdminPassword:    admin.Password,
		AdminPhoneNumber: admin.PhoneNumber,
		Routes:           router.RouteGrants(),
	})
	if errors.Is(err, usecase.ErrAlreadySeeded) {
		params.Logger.Info("Database already seeded, syncing route permissions")

		_, err = params.SeedUC.SyncPermissions(ctx, router.RouteGrants())

		return err
	}
	if err != nil {
		return err
	}

	params.Logger.Info("Database seeded",
		slog.Int("roles", output.Roles),
		slog.Int("permissions", output.Permissions),
		slog.String("admin_email", output.Admin.Email),
	)

	return nil
}
