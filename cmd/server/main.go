// Package main initializes and starts the vessel portal API server,
// setting up configuration, logging, the record store client, the optional
// audit database, services, handlers, and graceful shutdown.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/VesselPortal/internal/auth"
	"github.com/atinyakov/VesselPortal/internal/config"
	"github.com/atinyakov/VesselPortal/internal/db"
	"github.com/atinyakov/VesselPortal/internal/fieldmap"
	"github.com/atinyakov/VesselPortal/internal/logger"
	"github.com/atinyakov/VesselPortal/internal/middleware"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
	"github.com/atinyakov/VesselPortal/internal/repository"
	"github.com/atinyakov/VesselPortal/internal/server/handler/http"
	"github.com/atinyakov/VesselPortal/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse flags, config file, .env and environment.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics registry shared by the store decorator and the runtime collectors.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Record store client, instrumented.
	store := recordstore.WithMetrics(registry, recordstore.New(recordstore.Config{
		BaseURL:   options.QuickBaseBaseURL,
		Realm:     options.QuickBaseRealm,
		UserToken: options.QuickBaseUserToken,
		Timeout:   options.StoreTimeout.Duration,
	}))
	schema := fieldmap.New(options.ClientsTableID, options.VesselsTableID)

	serviceOpts := []service.Option{service.WithLogger(zapLogger)}
	var auditRepo *repository.PostgresAuditRepository

	// The audit log is optional; it needs a database.
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()

		db.StartAuditCleaner(ctx, postgresDB,
			time.Hour, // interval
			options.AuditRetention.Duration,
			zapLogger,
		)

		auditRepo = repository.NewPostgresAuditRepository(postgresDB)
		serviceOpts = append(serviceOpts, service.WithAudit(auditRepo))
	} else {
		zapLogger.Info("audit log disabled: no database DSN configured")
	}

	// Initialize business-logic services.
	clientService := service.NewClientService(store, schema, serviceOpts...)
	vesselService := service.NewVesselService(store, schema, serviceOpts...)

	verifier, err := newVerifier(options)
	if err != nil {
		zapLogger.Fatal("cannot init token verifier", zap.Error(err))
	}

	// Create HTTP handlers.
	userHandler := &http.UserHandler{ClientService: clientService, Logger: zapLogger}
	if auditRepo != nil {
		userHandler.Activity = auditRepo
	}
	vesselHandler := &http.VesselHandler{Clients: clientService, Vessels: vesselService, Logger: zapLogger}

	routerCfg := http.RouterConfig{
		Verifier:    verifier,
		CORSOrigins: options.Origins(),
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:      zapLogger,
	}
	if options.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(options.RateLimitRPS, options.RateLimitBurst)
		limiter.StartCleanup(ctx, time.Minute, options.RateLimitIdle.Duration, zapLogger)
		routerCfg.RateLimiter = limiter
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(userHandler, vesselHandler, routerCfg)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCertFile != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			errCh <- server.ListenAndServeTLS(options.TLSCertFile, options.TLSKeyFile)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

// newVerifier builds the identity token verifier, preferring an RSA public
// key over a shared secret when both are configured.
func newVerifier(o *config.Options) (*auth.JWTVerifier, error) {
	var opts []auth.VerifierOption
	if o.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(o.JWTIssuer))
	}
	if o.JWTLeeway.Duration > 0 {
		opts = append(opts, auth.WithLeeway(o.JWTLeeway.Duration))
	}
	if o.JWTPublicKeyPath != "" {
		pem, err := os.ReadFile(o.JWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		return auth.NewRSAVerifier(pem, opts...)
	}
	return auth.NewHMACVerifier(o.JWTSecret, opts...)
}
