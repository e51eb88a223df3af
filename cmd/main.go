package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/evfeat/internal/adapters/http/api"
	"github.com/okian/evfeat/internal/adapters/http/middleware"
	"github.com/okian/evfeat/internal/adapters/http/site"
	"github.com/okian/evfeat/internal/adapters/http/swagger"
	"github.com/okian/evfeat/internal/adapters/store"
	service "github.com/okian/evfeat/internal/app"
	"github.com/okian/evfeat/internal/config"
	"github.com/okian/evfeat/pkg/logger"
	"github.com/okian/evfeat/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Outbound Airtable client settings.
const (
	storeIdleConns        = 10
	storeIdleConnTimeout  = 90 * time.Second
	storeTLSHandshake     = 5 * time.Second
	storeResponseHeaderTO = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Named("main")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	st, err := newStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithStore(st),
		service.WithCatalog(catalog),
		service.WithConfigureURL(cfg.ConfigureURL),
		service.WithLogger(logger.Named("service")),
	)

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", st.Driver()),
			logger.Int("features", catalog.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newStore builds the feature store selected by cfg.Driver. cfg is expected
// to be validated already.
func newStore(ctx context.Context, cfg config.Store, log logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case store.DriverAirtable:
		return store.NewAirtableStore(cfg.BaseID, cfg.APIKey,
			store.WithBaseURL(cfg.BaseURL),
			store.WithTable(cfg.Table),
			store.WithTimeout(cfg.Timeout()),
			store.WithPageSize(cfg.PageSize),
			store.WithHTTPClient(newStoreClient()),
			store.WithAirtableLogger(logger.Named("airtable")),
		), nil
	case store.DriverMemory:
		records := cfg.Records()
		log.Warn(ctx, "using in-memory feature store; rows are not read from Airtable",
			logger.Int("seed_records", len(records)))
		return store.NewMemoryStore(
			store.WithRecords(records...),
			store.WithMemoryLogger(logger.Named("memory")),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownDriver, cfg.Driver)
	}
}

// newStoreClient returns the HTTP client the Airtable store shares across
// requests. Per-fetch deadlines come from the store timeout.
func newStoreClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = storeIdleConns
	transport.MaxIdleConnsPerHost = storeIdleConns
	transport.IdleConnTimeout = storeIdleConnTimeout
	transport.TLSHandshakeTimeout = storeTLSHandshake
	transport.ResponseHeaderTimeout = storeResponseHeaderTO
	return &http.Client{Transport: transport}
}

// newHandler wires every route onto one mux behind the request id middleware.
func newHandler(ctx context.Context, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	site.Register(ctx, mux, svc)
	return middleware.RequestID(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
