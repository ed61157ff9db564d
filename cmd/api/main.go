package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/randstring/randstring-go/internal/clipboard"
	"github.com/randstring/randstring-go/internal/config"
	"github.com/randstring/randstring-go/internal/crypto"
	"github.com/randstring/randstring-go/internal/handler"
	"github.com/randstring/randstring-go/internal/logger"
	"github.com/randstring/randstring-go/internal/middleware"
	"github.com/randstring/randstring-go/internal/repository"
	"github.com/randstring/randstring-go/internal/service"
)

// newGeneratorFactory returns the per-session generator constructor.
func newGeneratorFactory(cfg config.Config, log zerolog.Logger) (func() (*service.Generator, error), error) {
	base, err := cfg.Generator.GeneratorOptions()
	if err != nil {
		return nil, errors.Wrap(err, "generator options")
	}

	return func() (*service.Generator, error) {
		opts := base
		opts.Logger = &log
		opts.Clipboard = clipboard.NewMemory(cfg.Generator.GetCopiedResetAfter())
		if cfg.Generator.IsSecureRandom() {
			picker, err := crypto.NewSecurePicker()
			if err != nil {
				return nil, errors.Wrap(err, "new secure picker")
			}
			opts.Picker = picker
		}
		return service.NewGenerator(opts)
	}, nil
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	factory, err := newGeneratorFactory(cfg, log)
	if err != nil {
		return err
	}

	sessions := repository.NewSessionRepository(cfg.SessionTTL, factory)
	sessions.Start(ctx, time.Minute)
	defer sessions.Close()

	var picker crypto.IndexPicker = crypto.NewMathPicker()
	if cfg.Generator.IsSecureRandom() {
		secure, err := crypto.NewSecurePicker()
		if err != nil {
			return errors.Wrap(err, "new secure picker")
		}
		picker = secure
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:        log,
		Generator:     handler.NewGeneratorHandler(service.NewGeneratorService(picker)),
		Sessions:      handler.NewSessionHandler(sessions, cfg.SessionSecret, cfg.TokenExpiry),
		SessionSecret: cfg.SessionSecret,
		RateLimiter:   limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server.starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "listen and serve")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("server.shutting.down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing sessions first ends open event streams so Shutdown does not wait on them.
	sessions.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced shutdown")
	}

	log.Info().Msg("server.stopped")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.NewStdout(zerolog.InfoLevel, false)
		l.Fatal().Err(err).Msg("config.load.failed")
	}

	log := logger.NewStdout(cfg.LogLevel, !cfg.IsProduction())
	ctx, stop := signal.NotifyContext(log.WithContext(context.Background()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Stack().Err(err).Msg("server.failed")
		stop()
		os.Exit(1)
	}
}
