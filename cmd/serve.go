package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rfkeeper/pkg/bot"
	"rfkeeper/pkg/config"
	"rfkeeper/pkg/logger"
	"rfkeeper/pkg/rf"
	"rfkeeper/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the keeper bot",
	Long:  "Starts Telegram long polling and serves the save/move flows until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		// Optional .env for local runs; a missing file is fine.
		_ = godotenv.Load()

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		sessions, err := store.Open(cfg.Database.Path)
		if err != nil {
			log.Error("Failed to open session store", "error", err, "path", cfg.Database.Path)
			return
		}
		defer sessions.Close()

		service, err := bot.NewService(cfg, sessions, rf.NewClient(cfg.RedForester), log)
		if err != nil {
			log.Error("Failed to initialize bot service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Keeper starting", "database", cfg.Database.Path, "redforester", cfg.RedForester.BaseURL)
		if err := service.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Bot runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
