package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-dispatch/internal/api/grpc/health"
	"github.com/oshokin/alarm-dispatch/internal/api/http/webhook"
	"github.com/oshokin/alarm-dispatch/internal/config"
	"github.com/oshokin/alarm-dispatch/internal/logger"
	"github.com/oshokin/alarm-dispatch/internal/repository/login"
	"github.com/oshokin/alarm-dispatch/internal/repository/session"
	"github.com/oshokin/alarm-dispatch/internal/service/auth"
	"github.com/oshokin/alarm-dispatch/internal/service/dialogue"
	"github.com/oshokin/alarm-dispatch/internal/service/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/service/messenger"
	"github.com/oshokin/alarm-dispatch/internal/version"
)

// Options controls the bot process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the webhook listen address from the settings.
	ListenAddress string
}

const (
	// shutdownTimeout bounds draining of HTTP requests and in-flight events.
	shutdownTimeout = 10 * time.Second
	// readHeaderTimeout protects the webhook from slow clients.
	readHeaderTimeout = 5 * time.Second
	// healthProbeInterval is how often dispatch readiness is re-evaluated.
	healthProbeInterval = 5 * time.Second
)

// Run loads the settings and serves until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress

		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	logger.Setup(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	ctx = logger.WithName(ctx, "alarm-dispatch")
	logger.InfoKV(ctx, "Starting", version.KV()...)

	return Serve(ctx, cfg)
}

// Serve wires the components described by cfg and runs them.
func Serve(ctx context.Context, cfg *config.Config) error {
	tokens := auth.NewManager(auth.Options{
		ClientID:     cfg.Dispatch.ClientID,
		ClientSecret: cfg.Dispatch.ClientSecret,
		TokenURL:     cfg.Dispatch.TokenURL,
		AuthorizeURL: cfg.Dispatch.AuthorizeURL,
		RedirectURL:  cfg.Dispatch.RedirectURL,
		Audience:     cfg.Dispatch.Audience,
		Scope:        cfg.Dispatch.Scope,
		Timeout:      cfg.Timeout,
	})

	nonces, err := login.NewNonceStore(login.DefaultCapacity)
	if err != nil {
		return fmt.Errorf("initialize login store: %w", err)
	}

	alarms := dispatch.NewClient(cfg.Dispatch.APIURL, tokens, dispatch.WithCallTimeout(cfg.Timeout))
	engine := dialogue.NewEngine(session.NewMemoryStore(), alarms, tokens, nonces)
	sink := messenger.NewClient(cfg.Messenger.GraphURL, cfg.Messenger.PageAccessToken, cfg.Timeout)
	processor := NewProcessor(engine, sink)

	router, err := webhook.NewRouter(ctx, webhook.Options{
		VerifyToken: cfg.Messenger.VerifyToken,
		Events:      processor,
		Notifier:    processor,
		Exchanger:   tokens,
		Nonces:      nonces,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	var healthLis net.Listener

	if cfg.HealthAddress != "" {
		healthLis, err = lc.Listen(ctx, "tcp", cfg.HealthAddress)
		if err != nil {
			_ = lis.Close()

			return fmt.Errorf("listen on %s: %w", cfg.HealthAddress, err)
		}
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoKV(ctx, "Webhook server listening", "listen_address", lis.Addr().String())

		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down webhook server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}

		if err := processor.Wait(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Events still in flight at shutdown", "error", err)
		}

		return nil
	})

	if healthLis != nil {
		startHealth(groupCtx, group, healthLis, tokens)
	}

	if cfg.Dispatch.RefreshSchedule != "" {
		group.Go(func() error {
			return RunRefreshSchedule(groupCtx, cfg.Dispatch.RefreshSchedule, tokens)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Stopped")

	return nil
}

// startHealth serves gRPC health checks on lis and keeps the dispatch
// readiness in sync with the held tokens.
func startHealth(ctx context.Context, group *errgroup.Group, lis net.Listener, tokens *auth.Manager) {
	srv := health.NewServer()

	group.Go(func() error {
		return srv.Serve(ctx, lis)
	})

	group.Go(func() error {
		srv.Watch(ctx, func() bool { return tokens.Current() != nil }, healthProbeInterval)

		return nil
	})
}
