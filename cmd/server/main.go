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

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitplus/internal/auth"
	"github.com/mmynk/splitplus/internal/config"
	"github.com/mmynk/splitplus/internal/metrics"
	"github.com/mmynk/splitplus/internal/middleware"
	"github.com/mmynk/splitplus/internal/mirror"
	"github.com/mmynk/splitplus/internal/repository"
	"github.com/mmynk/splitplus/internal/rpc"
	"github.com/mmynk/splitplus/internal/service"
	"github.com/mmynk/splitplus/internal/storage"
	"github.com/mmynk/splitplus/internal/storage/memory"
	"github.com/mmynk/splitplus/internal/storage/sqlite"
	"github.com/mmynk/splitplus/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", cfg.StoreBackend, "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	users := repository.NewUserRepository(store)
	groups := repository.NewGroupRepository(store)
	expenses := repository.NewExpenseRepository(store)

	syncer := mirror.NewSyncer(mirror.NewClient(mirror.WithTimeout(cfg.MirrorTimeout)), groups, expenses, users, m)
	expenseSvc := service.NewExpenseService(expenses, groups, service.WithCommitHooks(syncer), service.WithMetrics(m))
	groupSvc := service.NewGroupService(groups, expenses, service.WithCommitHooks(syncer), service.WithMetrics(m))

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(users)

	public := connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor())
	secured := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor())

	mux := http.NewServeMux()
	mux.Handle(rpc.NewAuthServiceHandler(rpc.NewAuthHandler(authenticator, jwtManager), public))
	mux.Handle(rpc.NewExpenseServiceHandler(rpc.NewExpenseHandler(expenseSvc, groupSvc, users), secured))
	mux.Handle(rpc.NewGroupServiceHandler(rpc.NewGroupHandler(groupSvc, users, syncer), secured))
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Let in-flight mirror pushes finish before the store closes.
	expenseSvc.Wait()
	groupSvc.Wait()
	return nil
}

func openStore(cfg *config.Config) (storage.RecordStore, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return memory.New(), nil
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// loggingMiddleware logs every HTTP request at debug level. RPC outcomes are
// logged by the Connect interceptor.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
