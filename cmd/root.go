package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/stockscan/cli/internal/config"
)

var metadata = struct {
	Version string
	Commit  string
}{Version: "dev", Commit: "none"}

var rootCmd = &cobra.Command{
	Use:   "stockscan",
	Short: "Capture the visible browser tab and send it for AI stock analysis",
	Long: `stockscan captures the tab you are looking at and sends the screenshot to your
analysis service, which extracts tickers and sentiment and stores them.

Configuration is read from flags, STOCKSCAN_* environment variables and a .env
file in the current directory. The pre-shared key can be kept in the OS keyring
with 'stockscan auth set-key'.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("endpoint", "", "Analysis endpoint URL (env STOCKSCAN_ENDPOINT)")
	pf.String("key-header", "", "Header carrying the pre-shared key (env STOCKSCAN_KEY_HEADER)")
	pf.Duration("timeout", 0, "Request timeout (env STOCKSCAN_TIMEOUT)")
	pf.String("log-level", "", "Diagnostic log level: debug, info, warn, error (env STOCKSCAN_LOG_LEVEL)")
	pf.StringSlice("env-file", []string{".env"}, "Dotenv files to read")
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit string) error {
	metadata.Version = version
	metadata.Commit = commit
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}

// loadConfig resolves configuration and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Loader{DotEnvFiles: envFiles}.Load()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("key-header") {
		cfg.KeyHeader, _ = flags.GetString("key-header")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger and makes it the process default.
func newLogger(cfg config.Config) *slog.Logger {
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return logger
}

func userAgent() string {
	return fmt.Sprintf("stockscan/%s", metadata.Version)
}
