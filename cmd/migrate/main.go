package main

import (
	"flag"
	"fmt"
	"os"

	"storefront/config"
	logs "storefront/internal/infra/log"
	"storefront/internal/infra/persistence/migration"

	"github.com/pkg/errors"
)

// Supported subcommands:
// - up:      Apply all pending migrations
// - down:    Roll back all migrations
// - steps:   Apply (n > 0) or roll back (n < 0) n migrations
// - force:   Record a version without running it, clearing a dirty state
// - version: Print the applied version

func main() {
	stepsCmd := flag.NewFlagSet("steps", flag.ExitOnError)
	stepsN := stepsCmd.Int("n", 1, "Number of migrations, negative to roll back")

	forceCmd := flag.NewFlagSet("force", flag.ExitOnError)
	forceVersion := forceCmd.Int("version", -1, "Version to record")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	migrator, err := newMigrator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		if parseErr := stepsCmd.Parse(os.Args[2:]); parseErr != nil {
			err = errors.WithStack(parseErr)

			break
		}
		err = migrator.Steps(*stepsN)
	case "force":
		if parseErr := forceCmd.Parse(os.Args[2:]); parseErr != nil {
			err = errors.WithStack(parseErr)

			break
		}
		if *forceVersion < 0 {
			err = errors.New("-version is required")

			break
		}
		err = migrator.Force(*forceVersion)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = migrator.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
		}
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newMigrator() (*migration.Migrator, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	logger, err := logs.New(logs.Params{Config: cfg})
	if err != nil {
		return nil, err
	}

	return migration.New(cfg, logger)
}

func printUsage() {
	fmt.Println(`Usage: migrate <command> [options]

Commands:
  up                 Apply all pending migrations
  down               Roll back all migrations
  steps -n <n>       Apply n migrations, or roll back when n is negative
  force -version <v> Record version v without running it
  version            Print the applied version`)
}
