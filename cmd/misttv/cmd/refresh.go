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
	"github.com/misttv/misttv/internal/httpclient"
	"github.com/misttv/misttv/internal/live"
	"github.com/misttv/misttv/internal/repository"
	"github.com/misttv/misttv/internal/service"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [key...]",
	Short: "Refresh live sources",
	Long: `Refresh the channel cache of the named live sources, or of every
enabled source when no keys are given. Useful from cron or for debugging a
feed without running the server.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(_ *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		for _, key := range args {
			count, err := liveService.Refresh(ctx, key)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d channels\n", key, count)
		}
		return nil
	}

	return liveService.RefreshAll(ctx)
}
