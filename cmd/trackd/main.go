// Command trackd runs the job application tracking service: an HTTP API
// over a failover chain of file storage backends and a record store.
//
// Run with -migrate to copy CSV records into the sqlite database and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/getiva/trackd/config"
	"github.com/getiva/trackd/logger"
	"github.com/getiva/trackd/record"
	"github.com/getiva/trackd/resolver"
	"github.com/getiva/trackd/server"
	"github.com/getiva/trackd/storage"
	"github.com/getiva/trackd/storage/cloudinary"
	"github.com/getiva/trackd/storage/drive"
	"github.com/getiva/trackd/storage/local"
	"github.com/getiva/trackd/storage/supabase"
)

const version = "1.0.0"

func main() {
	configFile := flag.String("config", "", "path to config.yml (searched for if empty)")
	migrate := flag.Bool("migrate", false, "migrate CSV records into sqlite and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackd: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.Logging, cfg.Base.Name)

	if *migrate {
		runMigration(cfg, log)
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("startup failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
}

func runMigration(cfg *config.Config, log *logger.Logger) {
	report, err := record.Migrate(context.Background(), cfg.Records.DataDir, cfg.Records.DSN, log)
	if err != nil {
		log.Fatal("migration failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	fmt.Printf("migrated %d users and %d applications (%d already present)\n",
		report.Users, report.Applications, report.Skipped)
}

func run(cfg *config.Config, log *logger.Logger) error {
	records, err := record.Open(cfg.Records, log)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer records.Close()

	chain, err := buildChain(cfg, log)
	if err != nil {
		return fmt.Errorf("build storage chain: %w", err)
	}

	files := resolver.New(log,
		cfg.Storage.Local.BasePath,
		cfg.Storage.Local.ServePrefix,
		cfg.Storage.FetchTimeout,
	)

	srv := server.New(cfg.Server, log)
	handler := server.NewHandler(records, chain, files, log)
	server.RegisterRoutes(srv.Engine(), handler, version,
		cfg.Storage.Local.ServePrefix, cfg.Storage.Local.BasePath)

	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})

	return srv.Stop(ctx)
}

// buildChain assembles the failover chain in its fixed priority order:
// Drive, Supabase, Cloudinary, then local disk as the terminal fallback.
func buildChain(cfg *config.Config, log *logger.Logger) (*storage.Chain, error) {
	driveBackend, err := drive.New(&cfg.Storage.Drive)
	if err != nil {
		// Unconfigured Drive is a degraded mode, not a startup failure.
		log.Warn("google drive backend disabled", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	localBackend, err := local.New(&cfg.Storage.Local)
	if err != nil {
		return nil, err
	}

	return storage.NewChain(log, cfg.Storage.AttemptTimeout,
		driveBackend,
		supabase.New(&cfg.Storage.Supabase),
		cloudinary.New(&cfg.Storage.Cloudinary),
		localBackend,
	), nil
}
