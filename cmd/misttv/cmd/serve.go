package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/misttv/misttv/internal/database"
	internalhttp "github.com/misttv/misttv/internal/http"
	"github.com/misttv/misttv/internal/http/handlers"
	"github.com/misttv/misttv/internal/httpclient"
	"github.com/misttv/misttv/internal/live"
	"github.com/misttv/misttv/internal/repository"
	"github.com/misttv/misttv/internal/scheduler"
	"github.com/misttv/misttv/internal/service"
	"github.com/misttv/misttv/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the misttv server",
	Long: `Start the misttv HTTP server and API.

The server provides:
- REST API for managing live sources, channels, and the admin configuration
- Raw stored-playlist endpoint at /api/live/m3u
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "misttv.db", "Database DSN (file path for sqlite)")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	kvRepo := repository.NewKVRepository(db.DB)
	sourceRepo := repository.NewLiveSourceRepository(db.DB)

	clientCfg := httpclient.DefaultConfig()
	// No whole-response timeout: playlist fetches are bounded per request in
	// the refresher, and guide streams can run to hundreds of megabytes.
	clientCfg.Timeout = 0
	clientCfg.UserAgent = cfg.Live.UserAgent
	clientCfg.Logger = logger
	client := httpclient.New(clientCfg)

	cache := live.NewCache(kvRepo, logger)
	refresher := live.NewRefresher(cache, kvRepo, client, cfg.Live, logger)
	defer refresher.Close()

	liveService := service.NewLiveService(sourceRepo, kvRepo, cache, refresher, logger)
	adminService := service.NewAdminService(kvRepo, sourceRepo, cfg.Admin, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := adminService.Bootstrap(ctx); err != nil {
		return fmt.Errorf("reconciling admin config: %w", err)
	}

	sched := scheduler.New(liveService, cfg.Scheduler, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	server := internalhttp.NewServer(cfg.Server, logger, version.Short())

	playlistHandler := handlers.NewPlaylistHandler(liveService, logger)
	playlistHandler.Register(server.API())
	playlistHandler.RegisterRaw(server.Router())
	handlers.NewHealthHandler(version.Short(), db).Register(server.API())
	handlers.NewLiveSourceHandler(liveService).Register(server.API())
	handlers.NewChannelHandler(liveService).Register(server.API())
	handlers.NewAdminHandler(adminService).Register(server.API())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}
	return nil
}
