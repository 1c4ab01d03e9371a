// Command swick drives the ordering core: it places orders and tips, follows order
// status, listens for realtime events and serves cart quotes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"swick/internal/config"
	"swick/internal/logger"
)

const (
	Version = "0.3.0"
	appName = "swick"
)

// app carries what every subcommand needs
type app struct {
	configPath string
	role       string
	logLevel   string

	cfg *config.Config
	log *logger.Logger
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Restaurant ordering core",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Name())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.role, "role", "", "Override session role (customer, server)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		orderCmd(a),
		tipCmd(a),
		detailsCmd(a),
		requestsCmd(a),
		requestCmd(a),
		listenCmd(a),
		serveCmd(a),
		unreconciledCmd(a),
		emitCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func (a *app) load(command string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.role != "" {
		cfg.Session.Role = a.role
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}

	a.cfg = cfg
	a.log = logger.NewWithWriter(appName+"-"+command, os.Stderr, level)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func (a *app) signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			a.log.Info("graceful_shutdown", "Received shutdown signal", "", nil)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
