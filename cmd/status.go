package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stockscan/cli/internal/analysis"
	"github.com/stockscan/cli/internal/config"
	"github.com/stockscan/cli/pkg/util"
)

// Pinger checks whether the analysis endpoint answers.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// StatusCmd reports the resolved configuration and endpoint reachability.
type StatusCmd struct {
	pinger Pinger
	stdout io.Writer
}

// StatusInput holds input for a status report.
type StatusInput struct {
	Config config.Config
	Output string
}

// StatusOutput is the JSON form of a status report.
type StatusOutput struct {
	Endpoint     string `json:"endpoint"`
	KeyHeader    string `json:"key_header"`
	Key          string `json:"key"`
	KeySource    string `json:"key_source"`
	Timeout      string `json:"timeout"`
	Backend      string `json:"backend"`
	DashboardURL string `json:"dashboard_url,omitempty"`
	Reachable    bool   `json:"reachable"`
	HTTPStatus   int    `json:"http_status,omitempty"`
	Error        string `json:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resolved configuration and check the analysis endpoint",
	Long: `Show where stockscan will send screenshots and whether the endpoint answers.

Any HTTP response counts as reachable; the key is never sent by this check.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
	rootCmd.AddCommand(statusCmd)
}

// Status prints the report. Reachability failures are reported, not returned.
func (s StatusCmd) Status(ctx context.Context, in StatusInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	cfg := in.Config
	out := StatusOutput{
		Endpoint:     cfg.Endpoint,
		KeyHeader:    cfg.KeyHeader,
		Key:          util.MaskSecret(cfg.Key),
		KeySource:    cfg.KeySource(),
		Timeout:      cfg.Timeout.String(),
		Backend:      cfg.Backend,
		DashboardURL: cfg.DashboardURL,
	}

	if s.pinger != nil {
		code, err := s.pinger.Ping(ctx)
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Reachable = true
			out.HTTPStatus = code
		}
	} else {
		out.Error = "no endpoint configured"
	}

	if in.Output == "json" {
		return util.FprintJSON(s.stdout, out)
	}

	printStatus(out)
	return nil
}

var (
	reachableColor   = pterm.NewRGB(31, 163, 130)
	unreachableColor = pterm.NewRGB(239, 68, 68)
)

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(out StatusOutput) {
	rows := pterm.TableData{
		{"Setting", "Value"},
		{"Endpoint", util.OrDash(out.Endpoint)},
		{"Key header", util.OrDash(out.KeyHeader)},
		{"Key", fmt.Sprintf("%s (%s)", out.Key, out.KeySource)},
		{"Timeout", out.Timeout},
		{"Backend", out.Backend},
		{"Dashboard", util.OrDash(out.DashboardURL)},
	}
	pterm.Println()
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Println()

	if out.Reachable {
		pterm.Printf("  %s Analysis service: %s (HTTP %d %s)\n",
			coloredDot(reachableColor), reachableColor.Sprint("Reachable"), out.HTTPStatus, http.StatusText(out.HTTPStatus))
	} else {
		pterm.Printf("  %s Analysis service: %s (%s)\n",
			coloredDot(unreachableColor), unreachableColor.Sprint("Unreachable"), out.Error)
	}
	pterm.Println()
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := StatusCmd{stdout: cmd.OutOrStdout()}
	if cfg.Endpoint != "" {
		if err := cfg.ValidateEndpoint(); err != nil {
			return err
		}
		s.pinger = analysis.NewClient(analysis.Config{
			Endpoint:  cfg.Endpoint,
			KeyHeader: cfg.KeyHeader,
			Timeout:   cfg.Timeout,
			UserAgent: userAgent(),
			Logger:    newLogger(cfg),
		})
	}
	return s.Status(cmd.Context(), StatusInput{Config: cfg, Output: output})
}
