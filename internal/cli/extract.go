package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/extract"
)

const defaultExtractEndpoint = "http://localhost:8000/ajax/extract-text/"

// NewExtractCmd uploads study material to the text-extraction endpoint and
// prints the returned text.
func NewExtractCmd(configPath *string) *cobra.Command {
	var (
		endpoint string
		csrf     string
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract text from a slide deck or document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout := 60 * time.Second
			if endpoint == "" {
				if cfg, err := config.Load(*configPath); err == nil {
					endpoint = cfg.Extract.Endpoint
					timeout = config.TTLDuration(cfg.Extract.Timeout, timeout)
				}
			}
			if endpoint == "" {
				endpoint = defaultExtractEndpoint
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			client := extract.NewClient(&http.Client{Timeout: timeout}, endpoint, csrf)
			text, err := client.Extract(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "extraction endpoint URL (overrides config)")
	cmd.Flags().StringVar(&csrf, "csrf", os.Getenv("CSRF_TOKEN"), "CSRF token sent as X-CSRFToken")
	return cmd
}
