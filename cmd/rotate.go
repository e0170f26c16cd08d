package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/solward/triarb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rotateAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Send a one-shot manual rotation signal to a running instance",
	Long: `Posts to a running instance's control endpoint, queuing a manual
intermediate rotation. The rotation is applied at the next tick
boundary rather than immediately.`,
	RunE: runRotate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rotateCmd.Flags().StringVar(&rotateAddr, "addr", "", "base URL of the running instance (default http://localhost:<HTTP_PORT>)")
	rootCmd.AddCommand(rotateCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
	addr := rotateAddr
	if addr == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr = "http://localhost:" + cfg.HTTPPort
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(addr+"/control/rotate", "application/json", nil)
	if err != nil {
		return fmt.Errorf("post rotation request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("rotation request rejected: status %d", resp.StatusCode)
	}

	fmt.Println("rotation requested")
	return nil
}
