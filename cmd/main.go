// Package main provides the CLI entrypoint for the loyalty scan engine.
// It wires subcommands (scan, decode), loads configuration, and initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loyscan/internal/config"
	"loyscan/internal/history"
	"loyscan/pkg/logger"
)

// getHistory opens the local scan history database and returns it along with
// a cleanup function to close it.
func getHistory(ctx context.Context, cfg *config.Config) (history.Store, func()) {
	store, err := history.NewBolt(history.NewOptions(cfg.History.Path))
	if err != nil {
		logger.Fatal(ctx, "could not open history store", zap.Error(err))
	}

	return store, func() {
		logger.Info(ctx, "closing history store...")
		if err := store.Close(); err != nil {
			logger.Warn(ctx, "could not close history store", zap.Error(err))
		}
	}
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use: "loyscan",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	logger.Setup(cfg.Environment)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		scanCommand(cfg),
		decodeCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
