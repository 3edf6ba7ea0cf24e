package cmd

import (
	"fmt"
	"net/url"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// DashboardCmd opens the stock dashboard in the default browser.
type DashboardCmd struct {
	openURL func(string) error
}

// DashboardInput holds input for opening the dashboard.
type DashboardInput struct {
	URL string
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the stock dashboard in your browser",
	Long:  `Open the dashboard that lists analysed stocks. Set STOCKSCAN_DASHBOARD_URL or pass --url.`,
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().String("url", "", "Dashboard URL (env STOCKSCAN_DASHBOARD_URL)")
	rootCmd.AddCommand(dashboardCmd)
}

// Open launches the browser. Failing to launch it is a warning; the URL is
// printed either way.
func (d DashboardCmd) Open(in DashboardInput) error {
	if in.URL == "" {
		return fmt.Errorf("no dashboard URL configured: set STOCKSCAN_DASHBOARD_URL or pass --url")
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid dashboard URL %q", in.URL)
	}

	pterm.Info.Printf("Dashboard: %s\n", in.URL)
	if err := d.openURL(in.URL); err != nil {
		pterm.Warning.Printf("Could not open browser automatically: %v\n", err)
	} else {
		pterm.Info.Println("(Opened in browser)")
	}
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("url") {
		cfg.DashboardURL, _ = cmd.Flags().GetString("url")
	}
	return DashboardCmd{openURL: browser.OpenURL}.Open(DashboardInput{URL: cfg.DashboardURL})
}
