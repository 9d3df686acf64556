// limits-cli manages the per-resource rate limit thresholds stored in
// rate_limit_configs. It talks to the database directly; the running service
// picks changes up within the config cache TTL.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"relevance-gateway/internal/adapter/repository"
	"relevance-gateway/internal/infra"
)

func main() {
	root := &cobra.Command{
		Use:           "limits-cli",
		Short:         "Manage rate limit configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(listCmd(), setCmd(), enableCmd(true), enableCmd(false))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openRepo(ctx context.Context) (*repository.RateLimitRepository, func(), error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return repository.NewRateLimitRepository(pool), pool.Close, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured resource types",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			repo, closePool, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			configs, err := repo.ListConfigs(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RESOURCE\tMAX\tWINDOW_MS\tENABLED\tUPDATED")
			for _, c := range configs {
				fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n",
					c.ResourceType, c.MaxRequests, c.WindowDurationMs, c.IsEnabled,
					c.UpdatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func setCmd() *cobra.Command {
	var (
		maxRequests int
		windowMs    int64
		disabled    bool
	)
	cmd := &cobra.Command{
		Use:   "set <resource-type>",
		Short: "Create or replace the thresholds for a resource type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxRequests <= 0 || windowMs <= 0 {
				return fmt.Errorf("--max-requests and --window-ms must be positive")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			repo, closePool, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			if err := repo.UpsertConfig(ctx, args[0], maxRequests, windowMs, !disabled); err != nil {
				return err
			}
			fmt.Printf("updated %s: %d requests / %d ms (enabled=%t)\n", args[0], maxRequests, windowMs, !disabled)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRequests, "max-requests", 100, "maximum requests per window")
	cmd.Flags().Int64Var(&windowMs, "window-ms", 60000, "window duration in milliseconds")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the config disabled")
	return cmd
}

func enableCmd(enable bool) *cobra.Command {
	use, short := "enable <resource-type>", "Enable limiting for a resource type"
	if !enable {
		use, short = "disable <resource-type>", "Disable limiting for a resource type"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			repo, closePool, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			if err := repo.SetEnabled(ctx, args[0], enable); err != nil {
				return err
			}
			fmt.Printf("%s: enabled=%t\n", args[0], enable)
			return nil
		},
	}
}
