package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/stockscan/cli/internal/capture"
	"github.com/stockscan/cli/internal/config"
	"github.com/stockscan/cli/internal/scan"
)

func addCaptureFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("backend", "", "Capture backend: chrome, kernel or file (env STOCKSCAN_BACKEND)")
	f.String("cdp-url", "", "Chrome DevTools URL, host:port or port (default: discovered from DevToolsActivePort)")
	f.String("chrome-user-data-dir", "", "Chrome user data directory used for discovery")
	f.Bool("launch", false, "Launch a private Chrome and capture --url instead of attaching")
	f.Bool("headless", true, "Run the launched Chrome headless")
	f.String("url", "", "Page to open when --launch is set")
	f.String("browser-id", "", "Kernel browser session ID (kernel backend)")
	f.StringP("file", "f", "", "Image file to submit, or - for stdin (file backend)")
}

// applyCaptureFlags copies capture flags onto cfg. --file selects the file
// backend unless a backend was chosen explicitly.
func applyCaptureFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("backend") {
		cfg.Backend, _ = f.GetString("backend")
	} else if f.Changed("file") {
		cfg.Backend = config.BackendFile
	}
	if f.Changed("cdp-url") {
		cfg.CDPURL, _ = f.GetString("cdp-url")
	}
	if f.Changed("chrome-user-data-dir") {
		cfg.ChromeUserDataDir, _ = f.GetString("chrome-user-data-dir")
	}
	if f.Changed("browser-id") {
		cfg.KernelBrowserID, _ = f.GetString("browser-id")
	}
}

func newCapturer(cmd *cobra.Command, cfg config.Config, logger *slog.Logger) (scan.Capturer, error) {
	f := cmd.Flags()
	switch cfg.Backend {
	case config.BackendChrome:
		launch, _ := f.GetBool("launch")
		headless, _ := f.GetBool("headless")
		startURL, _ := f.GetString("url")
		return capture.NewChromeCapturer(capture.ChromeConfig{
			ControlURL:  cfg.CDPURL,
			UserDataDir: cfg.ChromeUserDataDir,
			Launch:      launch,
			Headless:    headless,
			StartURL:    startURL,
			Timeout:     cfg.Timeout,
			Logger:      logger,
		}), nil
	case config.BackendKernel:
		if cfg.KernelBrowserID == "" {
			return nil, fmt.Errorf("the kernel backend requires --browser-id or STOCKSCAN_KERNEL_BROWSER_ID")
		}
		return capture.NewKernelCapturer(cfg.KernelAPIKey, cfg.KernelBrowserID), nil
	case config.BackendFile:
		path, _ := f.GetString("file")
		return &capture.FileCapturer{Path: path, Stdin: cmd.InOrStdin()}, nil
	default:
		return nil, cfg.ValidateBackend()
	}
}
