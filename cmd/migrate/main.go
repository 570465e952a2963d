// Command migrate runs schema operations against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"devlink/internal/config"
	"devlink/internal/database"

	"gorm.io/gorm"
)

const usageText = "usage: go run ./cmd/migrate/main.go <up|auto|status|down> [version]"

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal(usageText)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Schema application is deliberately left to the subcommand.
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if err := dispatch(context.Background(), cfg, db, cmd, flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

func dispatch(ctx context.Context, cfg *config.Config, db *gorm.DB, cmd string, args []string) error {
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
		return nil

	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
		return nil

	case "status":
		return printStatus(ctx, cfg, db)

	case "down":
		if len(args) < 1 {
			return fmt.Errorf("usage: go run ./cmd/migrate/main.go down <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usageText)
	}
}

func printStatus(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %06d_%s", m.Version, m.Name)
	}
	return nil
}
