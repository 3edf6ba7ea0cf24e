package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stockscan/cli/internal/analysis"
	"github.com/stockscan/cli/internal/config"
	"github.com/stockscan/cli/internal/scan"
	"github.com/stockscan/cli/pkg/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Capture the visible tab and send it for analysis",
	Long: `Capture a screenshot of the tab currently visible in your browser and send it to
the analysis service as a base64 PNG data URI.

By default stockscan attaches to your running Chrome over the DevTools protocol.
Start Chrome with --remote-debugging-port=9222 so the endpoint can be discovered,
or pass --cdp-url explicitly.`,
	Example: `  # Scan the tab you are looking at
  stockscan scan

  # Scan a page in a fresh headless Chrome
  stockscan scan --launch --url https://www.reddit.com/r/stocks

  # Scan the screen of a Kernel cloud browser
  KERNEL_API_KEY=sk_... stockscan scan --backend kernel --browser-id abc123

  # Submit an existing screenshot and print the outcome as JSON
  stockscan scan -f screenshot.png -o json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	addCaptureFlags(scanCmd)
	scanCmd.Flags().StringP("output", "o", "", "Output format (json)")
	scanCmd.Flags().String("key", "", "Pre-shared key (prefer STOCKSCAN_KEY or 'stockscan auth set-key')")
	rootCmd.AddCommand(scanCmd)
}

// ScanCmd runs one capture-and-submit invocation.
type ScanCmd struct {
	capturer  scan.Capturer
	submitter scan.Submitter
	logger    *slog.Logger
	stdout    io.Writer
}

// ScanInput holds input for a scan.
type ScanInput struct {
	Output string
}

// ScanOutput is the JSON form of a scan outcome.
type ScanOutput struct {
	Phase         scan.Phase      `json:"phase"`
	Status        string          `json:"status"`
	ServiceStatus string          `json:"service_status,omitempty"`
	Message       string          `json:"message,omitempty"`
	ErrorKind     scan.Kind       `json:"error_kind,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Count         *int64          `json:"count,omitempty"`
}

// ptermSink renders statuses with the pterm prefix printers.
type ptermSink struct{}

func (ptermSink) Render(msg scan.StatusMessage) {
	switch msg.Phase {
	case scan.PhaseSuccess:
		pterm.Success.Println(msg.Text)
	case scan.PhaseFailure:
		pterm.Error.Println(msg.Text)
	default:
		pterm.Info.Println(msg.Text)
	}
}

// Scan triggers the workflow and reports the terminal status.
func (s ScanCmd) Scan(ctx context.Context, in ScanInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	var sink scan.StatusSink = ptermSink{}
	if in.Output == "json" {
		sink = nil
	}

	h := scan.NewHandler(scan.Config{
		Capturer:  s.capturer,
		Submitter: s.submitter,
		Sink:      sink,
		Logger:    s.logger,
	})
	out := h.Trigger(ctx)

	if in.Output == "json" {
		if err := util.FprintJSON(s.stdout, newScanOutput(out)); err != nil {
			return err
		}
	} else if out.Err == nil && out.Response != nil && out.Response.Count != nil {
		pterm.Info.Printf("Records stored: %d\n", *out.Response.Count)
	}

	if out.Err == nil {
		return nil
	}
	if in.Output != "json" && out.Status.Phase == scan.PhaseFailure {
		return reportedError{err: out.Err}
	}
	return fmt.Errorf("scan failed: %w", out.Err)
}

// reportedError is returned once the failure status has been printed, so the
// cause is not repeated on exit.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return "scan failed" }
func (e reportedError) Unwrap() error { return e.err }

func newScanOutput(out scan.Outcome) ScanOutput {
	o := ScanOutput{
		Phase:     out.Status.Phase,
		Status:    out.Status.Text,
		ErrorKind: scan.KindOf(out.Err),
	}
	if r := out.Response; r != nil {
		o.ServiceStatus = r.Status
		o.Message = r.Message
		o.Result = r.Result
		o.Count = r.Count
	}
	return o
}

func runScan(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyCaptureFlags(cmd, &cfg)
	if cmd.Flags().Changed("key") {
		key, _ := cmd.Flags().GetString("key")
		cfg.SetKey(key, config.KeySourceFlag)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	if cfg.InsecureEndpoint() && output != "json" {
		pterm.Warning.Println("The analysis endpoint uses plain http; the screenshot and key are sent unencrypted.")
	}

	capturer, err := newCapturer(cmd, cfg, logger)
	if err != nil {
		return err
	}

	s := ScanCmd{
		capturer: capturer,
		submitter: analysis.NewClient(analysis.Config{
			Endpoint:  cfg.Endpoint,
			KeyHeader: cfg.KeyHeader,
			Key:       cfg.Key,
			Timeout:   cfg.Timeout,
			UserAgent: userAgent(),
			Logger:    logger,
		}),
		logger: logger,
		stdout: cmd.OutOrStdout(),
	}
	return s.Scan(cmd.Context(), ScanInput{Output: output})
}
