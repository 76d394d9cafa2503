// Package main is the entry point for the toribot CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"toribot/pkg/bot"
	"toribot/pkg/config"
	"toribot/pkg/cron"
	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/state"
	"toribot/pkg/tg"
	"toribot/pkg/users"
	"toribot/pkg/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "toribot",
	Short: "toribot - a Telegram action-dispatch bot",
	Long: `toribot runs a Telegram bot whose commands are declarative actions:
each action names its parameters and the framework supplies them from
templates, datasources and multi-step question conversations before the
handler runs.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot",
	Long: `Run the bot in the foreground.

Examples:
  # Run with the default configuration lookup
  toribot run

  # Run with an explicit configuration file
  toribot run --config /etc/toribot/toribot.yaml`,
	Run: runBot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func runBot(cmd *cobra.Command, args []string) {
	app := fx.New(
		config.Module(config.Params{ConfigPath: configPath}),
		logger.Module,
		state.Module,
		users.Module,
		datasource.Module,
		bot.Module,
		tg.Module,
		cron.Module,

		fx.Invoke(func(*tg.Client) {}),
		fx.Invoke(func(*cron.Manager) {}),

		fx.NopLogger,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to start:", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nReceived interrupt signal, shutting down...")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to stop cleanly:", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
