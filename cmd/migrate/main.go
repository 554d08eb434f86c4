package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands that need no database:
  create <name>    write an empty migration into -dir (default %s)
  validate         check migration names and goose annotations

commands that connect using NAIJAMALL_DB_*:
  up               apply every pending migration
  down             roll back the newest migration
  to <version>     migrate up or down to version (YYYYMMDDHHMMSS)
  status           list migrations and when they were applied
  pending          exit 3 when migrations are waiting, for release gates
`

// errPending signals the pending command found unapplied migrations.
var errPending = errors.New("migrations pending")

func main() {
	dir := flag.String("dir", "", "migrations directory; empty uses the set compiled into this binary")
	flag.Usage = func() { fmt.Fprintf(flag.CommandLine.Output(), usage, migrate.DefaultDir) }
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	ctx := logg.WithFields(context.Background(), map[string]any{"command": args[0], "dir": *dir})

	err := run(ctx, logg, os.Stdout, *dir, args)
	switch {
	case err == nil:
	case errors.Is(err, errPending):
		logg.Warn(ctx, "unapplied migrations found")
		os.Exit(3)
	default:
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, out io.Writer, dir string, args []string) error {
	command := args[0]
	switch command {
	case "create":
		if len(args) < 2 {
			return errors.New("create needs a migration name")
		}
		target := dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil
	case "validate":
		fsys, err := migrate.Source(dir)
		if err != nil {
			return err
		}
		if err := migrate.Validate(fsys); err != nil {
			return err
		}
		logg.Info(ctx, "migrations valid")
		return nil
	case "up", "down", "to", "status", "pending":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	runner, closeDB, err := openRunner(ctx, logg, dir)
	if err != nil {
		return err
	}
	defer closeDB()

	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		if len(args) < 2 {
			return errors.New("to needs a target version")
		}
		version, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[1], err)
		}
		return runner.To(ctx, version)
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(out, rows)
	default:
		pending, err := runner.Pending(ctx)
		if err != nil {
			return err
		}
		if pending {
			return errPending
		}
		logg.Info(ctx, "schema is current")
		return nil
	}
}

func openRunner(ctx context.Context, logg *logger.Logger, dir string) (*migrate.Runner, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closeDB := func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	fsys, err := migrate.Source(dir)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return runner, closeDB, nil
}

func printStatus(out io.Writer, rows []migrate.Status) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, applied, row.File)
	}
	return tw.Flush()
}
