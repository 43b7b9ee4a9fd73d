package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"apodwall/internal/app"
	"apodwall/internal/config"
	"apodwall/internal/logging"
)

// cli carries state shared by all subcommands.
type cli struct {
	configDir string
	cfg       config.Config
	log       *logrus.Logger
	app       *app.App
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "apodwall",
		Short:         "Astronomy Picture of the Day viewer, wallpaper setter and notifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initialize(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "./configs", "Directory containing config.yaml")

	root.AddCommand(
		c.todayCommand(),
		c.showCommand(),
		c.historyCommand(),
		c.cacheCommand(),
		c.wallpaperCommand(),
		c.notifyCommand(),
		c.watchCommand(),
		c.botCommand(),
	)
	return root
}

// initialize loads configuration, sets up logging and builds the App.
func (c *cli) initialize(cmd *cobra.Command) error {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig(c.configDir)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	c.cfg = cfg

	// --- Logger Setup ---
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	c.log = log
	log.WithFields(logrus.Fields{
		"store_backend": cfg.StoreBackend,
		"source":        cfg.APODSource,
	}).Debug("Configuration loaded successfully")

	// --- Initialize Components ---
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	c.app = a
	return nil
}

// close releases the App, if one was built. It runs after the command
// regardless of its outcome.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	if err := c.app.Close(); err != nil {
		c.log.WithError(err).Error("Error closing application")
		return err
	}
	return nil
}
