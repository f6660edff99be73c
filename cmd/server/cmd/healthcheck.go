package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the bodies served by /healthz and /readyz.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks,omitempty"`
}

type healthcheckOptions struct {
	url     string
	timeout time.Duration
}

func newHealthcheckCommand() *cobra.Command {
	hcOpts := &healthcheckOptions{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Performs a readiness check by calling the /readyz endpoint.

This command is used by container HEALTHCHECK directives. It exits with code 0
if the server reports healthy and non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd, hcOpts)
		},
	}
	cmd.Flags().StringVar(&hcOpts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/readyz)")
	cmd.Flags().DurationVar(&hcOpts.timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func runHealthcheck(cmd *cobra.Command, hcOpts *healthcheckOptions) error {
	url := hcOpts.url
	if url == "" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		url = fmt.Sprintf("http://localhost:%s/readyz", port)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, hcOpts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("invalid health response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || (health.Status != "healthy" && health.Status != "ok") {
		return fmt.Errorf("server unhealthy: HTTP %d, status %q", resp.StatusCode, health.Status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Server is %s\n", health.Status)
	return nil
}
