package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/payload"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

func newClassifyCmd() *cobra.Command {
	var userAgent, body, source, method string
	var epsilon float64

	cmd := &cobra.Command{
		Use:   "classify [path]",
		Short: "Dry-run one probe through a fresh engine and print the decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetOutput(os.Stderr, "warn")

			eng := engine.New(
				engine.WithAgent(policy.NewAgent(nil, policy.WithEpsilon(epsilon))),
				engine.WithGenerator(payload.NewGenerator(payload.NoDelay())),
			)
			d := eng.Process(detection.Observation{
				Path:      args[0],
				Method:    method,
				UserAgent: userAgent,
				Body:      body,
				SourceIP:  source,
				Arrival:   time.Now(),
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(d.Metadata())
		},
	}

	cmd.Flags().StringVar(&userAgent, "ua", "", "User-Agent header")
	cmd.Flags().StringVar(&body, "body", "", "request body")
	cmd.Flags().StringVar(&source, "source", "127.0.0.1", "source identity")
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "exploration rate")
	return cmd
}
