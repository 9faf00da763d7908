package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registrationintake/config"
	"registrationintake/internal/adapters/email"
	deliveryhttp "registrationintake/internal/delivery/http"
	"registrationintake/internal/delivery/http/controllers"
	"registrationintake/internal/domain"
	"registrationintake/internal/metrics"
	"registrationintake/internal/repository/postgres"
	"registrationintake/internal/repository/sqlite"
	"registrationintake/internal/services"
	"registrationintake/internal/storage"
)

// @title Registration Intake API
// @version 1.0
// @description Accepts registrations with an optional PDF attachment and serves them back.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("upload directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("email templates: %w", err)
	}
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:             cfg.AWSRegion,
			AccessKeyID:        cfg.AWSAccessKeyID,
			SecretAccessKey:    cfg.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.AWSSESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	emailService := services.NewEmailService(mailer, renderer, logger)

	registrationService := services.NewRegistrationService(repo, files, emailService, m, logger)
	registrationController := controllers.NewRegistrationController(logger, registrationService, cfg.MaxUploadBytes())

	mux := deliveryhttp.NewRouter(registrationController, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deliveryhttp.WithMiddleware(mux, logger, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "db_driver", cfg.DBDriver, "upload_dir", cfg.UploadDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config) (*sql.DB, domain.RegistrationRepository, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.DBUrl)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewRegistrationRepository(db), nil
	default:
		db, err := postgres.Open(cfg.DBUrl)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.MigrateUp(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return db, postgres.NewRegistrationRepository(db), nil
	}
}
