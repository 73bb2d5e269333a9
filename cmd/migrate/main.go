// Command migrate manages the grocery database schema.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/infrastructure/migration"
	"github.com/grocery/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `Grocery schema migrations

Usage:
  migrate [-dir path] [-log-level level] <command> [args]

Commands:
  up                     apply pending migrations
  down                   revert every migration
  step <n>               apply n migrations, revert when n < 0
  goto <version>         move to a version
  version                print the applied version
  force <version>        mark a version applied after a manual fix
  drop -confirm          drop every table in the database
  create <name> [desc]   scaffold an up/down pair in -dir (default ./migrations)
  list                   list known migrations

Without -dir the migrations compiled into the binary are used.
The database is configured like the server, through GROCERY_DATABASE_*.
`

// dbCommand runs against a connected migrator
type dbCommand struct {
	args int
	run  func(m *migration.Migrator, args []string) error
}

var dbCommands = map[string]dbCommand{
	"up":   {0, func(m *migration.Migrator, _ []string) error { return m.Up() }},
	"down": {0, func(m *migration.Migrator, _ []string) error { return m.Down() }},
	"step": {1, func(m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step count %q: %w", args[0], err)
		}
		return m.Steps(n)
	}},
	"goto": {1, func(m *migration.Migrator, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}
		return m.GoTo(uint(v))
	}},
	"force": {1, func(m *migration.Migrator, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}
		return m.Force(v)
	}},
	"version": {0, func(m *migration.Migrator, _ []string) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	}},
	"drop": {0, func(m *migration.Migrator, args []string) error {
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return errors.New("drop destroys all data; rerun as 'migrate drop -confirm'")
		}
		return m.Drop()
	}},
}

func main() {
	dir := flag.String("dir", "", "migrations directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(log, *dir, args[0], args[1:]); err != nil {
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(log *zap.Logger, dir, command string, args []string) error {
	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}

	switch command {
	case "create":
		if len(args) == 0 {
			return errors.New("usage: migrate create <name> [description]")
		}
		if dir == "" {
			dir = "migrations"
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		p, err := migration.Create(dir, args[0], description, time.Now())
		if err != nil {
			return err
		}
		log.Info("Migration created", zap.String("up", p.UpPath), zap.String("down", p.DownPath))
		return nil

	case "list":
		names, err := migration.List(source)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	cmd, ok := dbCommands[command]
	if !ok {
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	if len(args) < cmd.args {
		return fmt.Errorf("%s needs %d argument(s)", command, cmd.args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("reach database: %w", err)
	}

	m, err := migration.New(db, source, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Closing migrator", zap.Error(err))
		}
	}()

	log.Info("Running migration command", zap.String("command", command), zap.Bool("embedded", dir == ""))
	return cmd.run(m, args)
}
