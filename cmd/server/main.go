package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auraroll/internal/config"
	"auraroll/internal/cooldown"
	"auraroll/internal/identity"
	"auraroll/internal/inventory"
	"auraroll/internal/jobs"
	"auraroll/internal/metrics"
	"auraroll/internal/roll"
	"auraroll/internal/server"
	"auraroll/internal/telemetry"
)

const serviceName = "auraroll"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	table, err := cfg.RewardTable()
	if err != nil {
		log.Fatalf("Failed to load reward table: %v", err)
	}
	log.Printf("Loaded reward table with %d entries (total weight %d)", table.Len(), table.TotalWeight())

	tracker := cooldown.NewTracker(cfg.Cooldown())
	metrics.Init(tracker)

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	if cfg.CooldownPruneInterval > 0 {
		go jobs.NewCooldownJanitor(tracker, cfg.CooldownPruneInterval).Start(jobCtx)
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize identity verification: %v", err)
	}
	if !cfg.RequireAssertion {
		log.Println("WARNING: REQUIRE_ASSERTION=false, requests without an auth ticket are trusted as claimed")
	}

	granter := inventory.NewSteamGranter(cfg.SteamGrantURL, cfg.AppID, cfg.APIKey, cfg.GrantTimeout)

	orch := roll.New(roll.Config{
		RequireAssertion: cfg.RequireAssertion,
		VerifyTimeout:    cfg.VerifyTimeout,
		GrantTimeout:     cfg.GrantTimeout,
	}, tracker, verifier, table, granter)

	srv := server.New(cfg)
	srv.RegisterRoutes(orch, table)

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server started on %s (cooldown %s, identity provider %s)", cfg.ServerAddr, cfg.Cooldown(), cfg.IdentityProvider)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopJobs()
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}
	log.Println("Server exited")
}

func newVerifier(ctx context.Context, cfg *config.Config) (identity.Verifier, error) {
	if cfg.IdentityProvider == config.ProviderOIDC {
		return identity.DiscoverOIDC(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, &http.Client{Timeout: cfg.VerifyTimeout})
	}
	return identity.NewSteamVerifier(cfg.SteamAuthURL, cfg.AppID, cfg.APIKey, cfg.VerifyTimeout), nil
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}
