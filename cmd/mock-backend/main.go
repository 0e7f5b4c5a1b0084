// Command mock-backend serves the scenario backend API from memory. It is
// meant for local development of the console and for end-to-end tests.
//
// Usage:
//
//	mock-backend -addr :8080 -seed .stepwise/scenarios
//
// Every YAML scenario file in the seed directory is imported on startup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/logging"
	"github.com/blackcoderx/stepwise/pkg/mockserver"
	"github.com/blackcoderx/stepwise/pkg/storage"
	"github.com/blackcoderx/stepwise/pkg/transfer"
)

func main() {
	logger := logging.Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("mock-backend: .env file not loaded", "error", err)
	}

	addr := flag.String("addr", envOr("STEPWISE_MOCK_ADDR", ":8080"), "listen address")
	seed := flag.String("seed", "", "directory of scenario files to import on startup")
	timeout := flag.Duration("execution-timeout", 5*time.Minute, "upper bound for one scenario execution")
	level := flag.String("log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error")
	flag.Parse()

	logger = logging.Setup(os.Stderr, logging.ParseLevel(*level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *addr, *seed, *timeout); err != nil {
		logger.Error("mock-backend: stopped", "error", err)
		fmt.Fprintln(os.Stderr, "mock-backend:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, addr, seed string, timeout time.Duration) error {
	backend := mockserver.NewServer(mockserver.Config{
		Logger:           logger,
		ExecutionTimeout: timeout,
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: backend, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("mock-backend: listening", "addr", ln.Addr().String())

	if seed != "" {
		base := "http://" + ln.Addr().String()
		if err := seedBundles(ctx, logger, base, seed); err != nil {
			logger.Warn("mock-backend: seeding incomplete", "error", err)
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("mock-backend: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	backend.Wait()
	return nil
}

// seedBundles imports every scenario file in dir through the API, the same
// way the console's import command does.
func seedBundles(ctx context.Context, logger *slog.Logger, base, dir string) error {
	names, err := listYAML(dir)
	if err != nil {
		return err
	}

	importer := transfer.NewImporter(client.New(base, client.WithLogger(logger)), logger)
	var errs []error
	for _, name := range names {
		path := filepath.Join(dir, name+".yaml")
		b, err := storage.LoadBundle(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sc, err := importer.Import(ctx, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		logger.Info("mock-backend: seeded scenario", "name", sc.Name, "steps", len(sc.Steps))
	}
	return errors.Join(errs...)
}

func listYAML(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".yaml"))
	}
	return names, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
