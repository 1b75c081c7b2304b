// Command taskboard is the task board client. It keeps the signed-in
// session between runs and exposes every view either as a subcommand or
// through a local JSON view server (taskboard serve).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/handler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg.MigrationsPath = resolveMigrationsPath(cfg.MigrationsPath)

	a, err := newApp(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, a, os.Args[1:])
	stop()
	a.Close()

	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "taskboard: %v\n", err)
		os.Exit(1)
	}
}

// cmdServe runs the view server until ctx is cancelled, then drains
// in-flight requests. The session is restored in the background so early
// requests observe the loading state.
func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "serve")
	port := fs.String("port", a.cfg.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, a.deps())

	server := &http.Server{
		Addr:              ":" + *port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.bootstrap(ctx)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("taskboard view server starting on :%s (env: %s, session store: %s)", *port, a.cfg.Environment, a.cfg.Session.Backend)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Println("shutdown requested, waiting for in-flight requests to complete...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v, forcing shutdown", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("forced shutdown failed: %w", err)
		}
	}
	log.Println("server shutdown complete")
	return nil
}

// resolveMigrationsPath makes a relative migrations path absolute, looking
// first in the working directory and then next to the executable.
func resolveMigrationsPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}
