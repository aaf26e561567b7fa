package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/actions-bridge/internal/adapter/github"
	bridgehttp "github.com/Strob0t/actions-bridge/internal/adapter/http"
	bridgenats "github.com/Strob0t/actions-bridge/internal/adapter/nats"
	"github.com/Strob0t/actions-bridge/internal/adapter/natskv"
	bridgeotel "github.com/Strob0t/actions-bridge/internal/adapter/otel"
	"github.com/Strob0t/actions-bridge/internal/adapter/ristretto"
	"github.com/Strob0t/actions-bridge/internal/adapter/tiered"
	"github.com/Strob0t/actions-bridge/internal/config"
	"github.com/Strob0t/actions-bridge/internal/domain/command"
	"github.com/Strob0t/actions-bridge/internal/domain/gitop"
	"github.com/Strob0t/actions-bridge/internal/executor"
	"github.com/Strob0t/actions-bridge/internal/logger"
	"github.com/Strob0t/actions-bridge/internal/middleware"
	"github.com/Strob0t/actions-bridge/internal/port/audit"
	"github.com/Strob0t/actions-bridge/internal/port/cache"
	"github.com/Strob0t/actions-bridge/internal/resilience"
	"github.com/Strob0t/actions-bridge/internal/sandbox"
	"github.com/Strob0t/actions-bridge/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"addr", cfg.Server.Addr(),
		"root", cfg.Sandbox.Root,
		"allowed_commands", cfg.Exec.AllowedCommands,
		"log_level", cfg.Logging.Level,
	)
	if cfg.Auth.Token == "" {
		slog.Warn("no bridge token configured; every authenticated route will reject")
	}

	ctx := context.Background()

	// --- Observability ---

	otelShutdown, err := bridgeotel.Setup(ctx, cfg.OTEL, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	metrics, err := bridgeotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	sb, err := sandbox.New(cfg.Sandbox)
	if err != nil {
		return fmt.Errorf("sandbox: %w", err)
	}

	runner := executor.New(executor.Options{
		Dir:           sb.Root(),
		Timeout:       cfg.Exec.Timeout,
		MaxOutput:     cfg.Exec.MaxOutput,
		MaxConcurrent: cfg.Exec.MaxConcurrent,
	})
	if err := metrics.ObserveExec(func() (int64, int64) {
		s := runner.Stats()
		return s.Running, s.Waiting
	}); err != nil {
		return fmt.Errorf("exec metrics: %w", err)
	}

	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var repoCache cache.Cache = l1

	var sink audit.Sink = audit.Nop{}
	if cfg.NATS.URL != "" {
		pub, err := bridgenats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = pub.Close() }()
		sink = pub

		if cfg.NATS.RepoBucket != "" {
			l2, err := natskv.Open(ctx, pub.JetStream(), cfg.NATS.RepoBucket, cfg.Cache.RepoTTL)
			if err != nil {
				return fmt.Errorf("nats kv: %w", err)
			}
			repoCache = tiered.New(l1, l2, cfg.Cache.RepoTTL)
			slog.Info("shared repo cache enabled", "bucket", cfg.NATS.RepoBucket)
		}
	}
	auditor := service.NewAuditor(sink)

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithFailurePredicate(github.CountsAsFailure))
	ghClient := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token, cfg.GitHub.Timeout)
	ghClient.SetBreaker(breaker)
	resolver := github.NewResolver(runner, repoCache, cfg.Cache.RepoTTL)
	resolver.SetScope(github.ScopeFor(sb.Root()))

	// --- Services ---

	handlers := &bridgehttp.Handlers{
		Commands: service.NewCommandService(runner, command.NewAllowList(cfg.Exec.AllowedCommands),
			cfg.Exec.Wrapper, metrics, auditor),
		Files: service.NewFileService(sb, metrics, auditor),
		Git: service.NewGitService(runner, gitop.Limits{
			MaxDiffLines: cfg.Commit.MaxDiffLines,
			MaxDeletes:   cfg.Commit.MaxDeletes,
		}, metrics, auditor),
		PullRequests: service.NewPullRequestService(ghClient, resolver,
			cfg.GitHub.DefaultTitle, cfg.GitHub.DefaultBody, metrics, auditor),
		BodyLimit: cfg.Server.BodyLimit,
	}

	// --- HTTP ---

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.CleanPath)
	r.Use(bridgehttp.Logger)
	r.Use(bridgeotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(bridgehttp.Recoverer)
	r.Use(bridgehttp.SecurityHeaders)

	auth := middleware.Token(cfg.Auth.Token, cfg.Auth.Header, func(r *http.Request, err error) {
		metrics.RecordRejection(r.Context(), "auth", err.Error())
		auditor.Record(r.Context(), "auth", r.URL.Path, audit.OutcomeRejected, err.Error())
	})
	bridgehttp.MountRoutes(r, handlers, auth)

	// A /run response is only written once the command finishes, so the
	// write deadline must outlast the exec timeout.
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Exec.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
