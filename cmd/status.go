package cmd

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/solward/triarb/pkg/config"
	"github.com/solward/triarb/pkg/httpserver"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running instance's status endpoint",
	Long: `Fetches /status from a running instance and prints the current
loop state, ring position, anchor price freshness, and trend. Per-
iteration counters are exported separately on /metrics in Prometheus
format, not duplicated here.`,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "base URL of the running instance (default http://localhost:<HTTP_PORT>)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr = "http://localhost:" + cfg.HTTPPort
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status request failed: status %d", resp.StatusCode)
	}

	var snapshot httpserver.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode status response: %w", err)
	}

	fmt.Printf("state:          %s\n", snapshot.State)
	fmt.Printf("anchor:         %s\n", snapshot.Anchor)
	fmt.Printf("intermediate:   %s\n", snapshot.Intermediate)
	fmt.Printf("anchor usd:     %.4f\n", snapshot.AnchorUSD)
	fmt.Printf("price fresh:    %v\n", snapshot.PriceFresh)
	fmt.Printf("volatility:     %.6f\n", snapshot.Volatility)
	fmt.Printf("trend:          %s\n", snapshot.Trend)
	fmt.Printf("trading active: %v\n", snapshot.TradingActive)

	return nil
}
