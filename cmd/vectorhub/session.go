package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vectorhub/internal/config"
	"vectorhub/internal/embedding"
	"vectorhub/internal/embedding/provider"
	"vectorhub/internal/observability"
	"vectorhub/internal/vector"
	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"
)

const closeTimeout = 10 * time.Second

// session is everything one command invocation needs.
type session struct {
	cfg    *config.Config
	handle *vector.Handle
}

// loadConfig reads --config (or the defaults) and applies the connection flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.FromFile(configPath); err != nil {
			return nil, err
		}
	}
	if backend != "" {
		cfg.Engine.Backend = backend
	}
	if host != "" {
		cfg.Engine.Host = host
	}
	if port != 0 {
		cfg.Engine.Port = port
	}
	if database != "" {
		cfg.Engine.Database = database
	}
	if dataDir != "" {
		cfg.Engine.DataDir = dataDir
	}
	if verbose {
		cfg.Log.Level = logger.DebugLevel
	}
	return cfg, cfg.Validate()
}

// withSession opens a handle, runs fn and tears everything down again.
// SIGINT and SIGTERM cancel fn's context; Close still waits for in-flight
// calls up to closeTimeout.
func withSession(fn func(ctx context.Context, s *session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.InitLogger(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	tp, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), closeTimeout)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	h, err := vector.Retry(ctx, vector.DefaultRetryPolicy(), func(ctx context.Context) (*vector.Handle, error) {
		return vector.OpenBackend(ctx, cfg)
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), closeTimeout)
		defer done()
		_ = h.Close(closeCtx)
	}()

	return fn(ctx, &session{cfg: cfg, handle: h})
}

// embedder builds the configured text embedding provider for dim-sized vectors.
func (s *session) embedder(ctx context.Context, dim int) (embedding.Provider, error) {
	p, err := provider.New(ctx, s.cfg.Embedding, dim)
	if err != nil {
		return nil, pkgerrors.Validation("embed", "", pkgerrors.ErrInvalidConfig, "%v", err)
	}
	return p, nil
}

// exitCode maps error kinds to distinct process exit codes so scripts can
// tell an expected outcome from a failure.
func exitCode(err error) int {
	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindValidation:
		return 2
	case pkgerrors.KindNotFound:
		return 3
	case pkgerrors.KindAlreadyExists:
		return 4
	case pkgerrors.KindConnection:
		return 5
	case pkgerrors.KindRemoteRejected:
		return 6
	}
	return 1
}

func usageError(format string, args ...any) error {
	return pkgerrors.Validation("", "", nil, format, args...)
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
