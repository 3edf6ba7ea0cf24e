package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stockscan/cli/internal/capture"
	"github.com/stockscan/cli/internal/scan"
	"github.com/stockscan/cli/pkg/util"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the visible tab to an image file without sending it",
	Long: `Capture the visible tab with the configured backend and write the image to disk.
Use it to check what 'stockscan scan' would send.`,
	Example: `  stockscan capture -o shot.png
  stockscan capture --cdp-url 9222 -o - > shot.png`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	addCaptureFlags(captureCmd)
	captureCmd.Flags().StringP("out", "o", "screenshot.png", "Output path, or - for stdout")
	rootCmd.AddCommand(captureCmd)
}

// CaptureCmd captures a snapshot and saves it.
type CaptureCmd struct {
	capturer scan.Capturer
	stdout   io.Writer
}

// CaptureInput holds input for a capture.
type CaptureInput struct {
	OutPath string
}

// Capture writes one snapshot to in.OutPath.
func (c CaptureCmd) Capture(ctx context.Context, in CaptureInput) error {
	toStdout := in.OutPath == "-"
	if !toStdout {
		pterm.Info.Println("Capturing visible tab...")
	}

	snap, err := c.capturer.Capture(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture tab: %w", err)
	}
	mime, data, err := capture.DecodeDataURI(snap)
	if err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if toStdout {
		_, err := c.stdout.Write(data)
		return err
	}

	if err := os.WriteFile(in.OutPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", in.OutPath, err)
	}
	pterm.Success.Printf("Saved %s (%s, %s)\n", in.OutPath, mime, util.FormatBytes(int64(len(data))))
	return nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyCaptureFlags(cmd, &cfg)
	if err := cfg.ValidateBackend(); err != nil {
		return err
	}

	capturer, err := newCapturer(cmd, cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	c := CaptureCmd{capturer: capturer, stdout: cmd.OutOrStdout()}
	return c.Capture(cmd.Context(), CaptureInput{OutPath: outPath})
}
