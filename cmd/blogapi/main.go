package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/blogapi"
	"github.com/eringen/blogapi/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, blogapi.LoadConfig(), logger)
	case "migrate":
		err = runMigrate(ctx, blogapi.LoadConfig(), logger)
	case "create-admin":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: blogapi create-admin <username>")
			os.Exit(1)
		}
		err = runCreateAdmin(ctx, blogapi.LoadConfig(), os.Args[2], os.Stdout)
	case "version":
		fmt.Printf("blogapi %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg blogapi.Config, logger *slog.Logger) error {
	app := blogapi.New(cfg, blogapi.WithLogger(logger))
	if err := app.Init(ctx); err != nil {
		return err
	}
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

func runMigrate(ctx context.Context, cfg blogapi.Config, logger *slog.Logger) error {
	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return err
	}
	v, err := s.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrated", "db", s.Dialect(), "version", v)
	return nil
}

func openStore(ctx context.Context, cfg blogapi.Config, logger *slog.Logger) (*store.Store, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "data/blog.db"
	}
	s, err := store.Open(ctx, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func printUsage() {
	fmt.Println(`blogapi - A REST backend for blogs, tasks and orders built with Go and Echo

Usage:
  blogapi [command] [arguments]

Commands:
  serve                  Run the HTTP server (default)
  migrate                Apply database migrations and exit
  create-admin <name>    Create an administrator account
  version                Print the blogapi version
  help                   Show this help message

Environment:
  SECRET_KEY             Token signing key (required for serve)
  DATABASE_URL           SQLite path or postgres:// URL (default data/blog.db)
  ADDR                   Listen address (default :8000)
  ADMIN_PASSWORD         Password for create-admin; prompted when unset
  S3_BUCKET              Store avatars in S3 instead of AVATAR_DIR`)
}
