package cmd

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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/avelichko/catalog-sync/internal/api/handlers"
	"github.com/avelichko/catalog-sync/internal/api/middleware"
	"github.com/avelichko/catalog-sync/internal/config"
	"github.com/avelichko/catalog-sync/internal/notify"
	"github.com/avelichko/catalog-sync/internal/provider"
	"github.com/avelichko/catalog-sync/internal/store"
	syncengine "github.com/avelichko/catalog-sync/internal/sync"
	"github.com/avelichko/catalog-sync/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and sync scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// services holds the wired dependency graph shared by serve and sync.
type services struct {
	store    *store.PostgresStore
	governor *provider.RateGovernor
	engine   *syncengine.Engine
	log      *slog.Logger
}

// buildServices wires config into the full dependency graph: store, token
// provider, rate governor, catalog client, resolver, fetcher, notifier and
// engine.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	tokens, err := provider.NewClientCredentialsProvider(
		cfg.Provider.TokenURL,
		cfg.Provider.ClientID,
		cfg.Provider.ClientSecret,
		cfg.Provider.Scope,
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("configuring credentials: %w", err)
	}

	governor := provider.NewRateGovernor(
		cfg.Provider.RateLimit.WindowRequests,
		cfg.Provider.RateLimit.Window,
		provider.WithSmoothing(cfg.Provider.RateLimit.PerSecond, cfg.Provider.RateLimit.Burst),
	)

	client := provider.NewCatalogHTTPClient(
		tokens, governor, cfg.Provider.BaseURL, cfg.Provider.RetailerID,
	)
	resolver := provider.NewCategoryResolver(client, provider.WithResolverLogger(log))
	fetcher := provider.NewBatchFetcher(
		client, resolver,
		provider.WithFetchPageSize(cfg.Provider.PageSize),
		provider.WithFetcherLogger(log),
	)

	var notifier notify.Notifier = notify.NewNoOpNotifier(log)
	if cfg.Notifications.DiscordWebhookURL != "" {
		notifier = notify.NewDiscordNotifier(cfg.Notifications.DiscordWebhookURL)
	}

	engine := syncengine.NewEngine(st, fetcher, notifier,
		syncengine.WithLogger(log),
		syncengine.WithProductCategories(cfg.Provider.RootCategories),
	)

	return &services{store: st, governor: governor, engine: engine, log: log}, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.store.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(svc.log))
	e.Use(middleware.RequestLog(svc.log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(svc.store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Catalog Sync API", Version))
	handlers.RegisterSyncRoutes(api, handlers.NewSyncHandler(svc.engine))
	handlers.RegisterRunsRoutes(api, handlers.NewRunsHandler(svc.store))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(svc.governor))

	scheduler, err := syncengine.NewScheduler(
		svc.engine,
		cfg.Schedule.FullSyncInterval,
		cfg.Schedule.IncrementalInterval,
		svc.log,
	)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	scheduler.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	svc.log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.log.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	svc.log.Info("shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	svc.log.Info("server stopped")
	return nil
}
