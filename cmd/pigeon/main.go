package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/pigeon/internal/cmd/client"
	serverrun "github.com/rzbill/pigeon/internal/cmd/server"
	cfgpkg "github.com/rzbill/pigeon/internal/config"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
	logpkg "github.com/rzbill/pigeon/pkg/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Respect PIGEON_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("PIGEON_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormat(logpkg.FormatText),
		logpkg.WithOutput(os.Stderr),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := clientcmd.NewRoot(clientcmd.BaseURLFromEnv)
	rootCmd.Short = "Pigeon runtime CLI"
	rootCmd.Long = "Pigeon is a single-binary topic queue and key-value server. This CLI runs the server and talks to it."
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverCmd.AddCommand(newServerStartCommand())
	serverCmd.AddCommand(newServerConfigCommand())
	rootCmd.AddCommand(serverCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerStartCommand() *cobra.Command {
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start pigeon server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			grpcAddr, _ := cmd.Flags().GetString("grpc")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode, err := pebblestore.ParseFsyncMode(fsyncMode)
			if err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				GRPCAddr:      grpcAddr,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
				LogLevel:      logLevel,
				LogFormat:     logFormat,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	addConfigFlags(startCmd)
	startCmd.Flags().String("data-dir", "", "Data directory (default $PIGEON_DATA_DIR or an OS-specific application data directory)")
	startCmd.Flags().String("grpc", ":50051", "gRPC listen address (health and reflection)")
	startCmd.Flags().String("http", ":8080", "HTTP listen address")
	startCmd.Flags().String("fsync", "never", "Fsync mode: always|interval|never")
	startCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms (default 5)")
	startCmd.Flags().String("log-level", os.Getenv("PIGEON_LOG_LEVEL"), "Log level: debug|info|warn|error")
	startCmd.Flags().String("log-format", os.Getenv("PIGEON_LOG_FORMAT"), "Log format: text|json (default text)")
	return startCmd
}

// newServerConfigCommand resolves the configuration the same way start does
// and prints it, or fails on the first invalid setting.
func newServerConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective server configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "flush_interval_ms: %d\n", cfg.FlushIntervalMs)
			_, _ = fmt.Fprintf(out, "queue_encoding: %s\n", cfg.QueueEncoding)
			_, _ = fmt.Fprintf(out, "payload_max_bytes: %d\n", cfg.PayloadMaxBytes)
			_, _ = fmt.Fprintf(out, "max_name_bytes: %d\n", cfg.MaxNameBytes)
			_, _ = fmt.Fprintf(out, "delete_forces_flush: %t\n", cfg.DeleteForcesFlush)
			return nil
		},
	}
	addConfigFlags(configCmd)
	return configCmd
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", os.Getenv("PIGEON_CONFIG"), "Config file (.yaml, .yml or .json)")
	cmd.Flags().Int("flush-interval-ms", 0, "Flush scheduler period in ms (overrides config)")
	cmd.Flags().String("queue-encoding", "", "Queue record encoding: framed|newline (overrides config)")
}

// resolveConfig applies defaults, then the config file, then PIGEON_*
// variables, then explicitly set flags.
func resolveConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if cmd.Flags().Changed("flush-interval-ms") {
		cfg.FlushIntervalMs, _ = cmd.Flags().GetInt("flush-interval-ms")
	}
	if cmd.Flags().Changed("queue-encoding") {
		cfg.QueueEncoding, _ = cmd.Flags().GetString("queue-encoding")
	}
	if err := cfg.Validate(); err != nil {
		return cfgpkg.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
