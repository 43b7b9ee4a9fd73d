package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"apodwall/internal/app"
	"apodwall/internal/bot"
	"apodwall/internal/domain"
)

// errShown marks a failure whose user-facing message was already printed.
var errShown = errors.New("command failed")

func (c *cli) fail(cmd *cobra.Command, err error) error {
	c.log.WithError(err).Debug("Command failed")
	fmt.Fprintln(cmd.ErrOrStderr(), app.UserMessage(err))
	return errShown
}

func (c *cli) todayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := c.app.Load(cmd.Context())
			if v.State != app.StateLoaded {
				fmt.Fprintln(cmd.ErrOrStderr(), v.Message)
				return errShown
			}
			printRecord(cmd.OutOrStdout(), v.Record)
			return nil
		},
	}
}

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show DATE",
		Short: "Show the picture of a past day (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.app.Show(cmd.Context(), args[0])
			if err != nil {
				return c.fail(cmd, err)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func (c *cli) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently viewed pictures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printHistory(cmd.OutOrStdout(), c.app.History(cmd.Context()))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.ClearHistory(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	})
	return cmd
}

func (c *cli) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the daily cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget today's cached picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.ClearCache(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	})
	return cmd
}

func (c *cli) wallpaperCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wallpaper [DATE]",
		Short: "Set today's picture, or the picture of DATE, as the desktop wallpaper",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := ""
			if len(args) == 1 {
				date = args[0]
			}
			rec, path, err := c.app.SetWallpaper(cmd.Context(), date)
			if err != nil {
				return c.fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallpaper set to %q (%s)\n", rec.Title, path)
			return nil
		},
	}
}

func (c *cli) notifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Manage notifications",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "test",
			Short: "Send a test notification",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.NotifyTest(cmd.Context()); err != nil {
					return c.fail(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "cancel",
			Short: "Cancel all scheduled notifications",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.CancelNotifications(cmd.Context()); err != nil {
					return c.fail(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Scheduled notifications cancelled.")
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Check for a new picture periodically and notify once per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, ctx := errgroup.WithContext(cmd.Context())
			c.serveMetrics(ctx, g)
			g.Go(func() error { return c.app.Watch(ctx, c.cfg.CheckInterval) })
			return g.Wait()
		},
	}
}

func (c *cli) botCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot together with the watch loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.TelegramBotToken == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}
			handler, err := bot.NewHandler(c.cfg.TelegramBotToken, c.app, c.log)
			if err != nil {
				return err
			}

			c.log.Info("APOD Wall bot is running. Press Ctrl+C to exit.")
			g, ctx := errgroup.WithContext(cmd.Context())
			c.serveMetrics(ctx, g)
			g.Go(func() error {
				handler.Start(ctx)
				return nil
			})
			g.Go(func() error { return c.app.Watch(ctx, c.cfg.CheckInterval) })
			err = g.Wait()
			c.log.Info("APOD Wall shut down gracefully.")
			return err
		},
	}
}

// serveMetrics exposes /metrics on METRICS_ADDR, when set, for the lifetime of ctx.
func (c *cli) serveMetrics(ctx context.Context, g *errgroup.Group) {
	if c.cfg.MetricsAddr == "" {
		return
	}
	g.Go(func() error { return c.app.Metrics().Serve(ctx, c.cfg.MetricsAddr, c.log) })
}

func printRecord(w io.Writer, rec domain.Record) {
	fmt.Fprintf(w, "%s\n%s\n", rec.Date, rec.Title)
	if rec.Copyright != "" {
		fmt.Fprintf(w, "© %s\n", rec.Copyright)
	}
	fmt.Fprintf(w, "%s: %s\n", rec.MediaType, rec.URL)
	if rec.HDURL != "" {
		fmt.Fprintf(w, "hd: %s\n", rec.HDURL)
	}
	if rec.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", rec.Explanation)
	}
}

func printHistory(w io.Writer, entries []domain.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-6s %s\n", e.Date, e.MediaType, strings.TrimSpace(e.Title))
	}
}
