// Command luxmuxd runs the priority multiplexer daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	luxmux "libdb.so/luxmux"
	"libdb.so/luxmux/internal/configwatch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:           "luxmuxd",
		Short:         "luxmuxd runs the ambient lighting priority multiplexer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "luxmux.toml", "path to the configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(&configPath, &logLevel))
	root.AddCommand(newValidateCmd(&configPath))
	return root
}

func newServeCmd(configPath, logLevel *string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*logLevel)

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			daemon, err := luxmux.NewDaemon(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if watch {
				watcher := configwatch.New(*configPath, loadConfig, log)
				watcher.OnReload(func(cfg *luxmux.Config) {
					if err := cfg.Validate(); err != nil {
						log.Warn("reloaded config is invalid, ignoring", "error", err)
						return
					}
					daemon.Muxer().UpdateLEDCount(cfg.LEDCount)
				})
				go func() {
					if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
						log.Warn("config watcher stopped", "error", err)
					}
				}()
			}

			log.Info("starting luxmuxd", "config", *configPath)
			return daemon.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload led_count from the config file on change")
	return cmd
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d LEDs)\n", *configPath, cfg.LEDCount)
			return nil
		},
	}
}

func loadConfig(path string) (*luxmux.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return luxmux.ParseConfig(f)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
