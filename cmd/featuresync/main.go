// Package main implements the featuresync CLI.
//
// featuresync creates Codebeamer items for the requirement blocks in a pull
// request's feature files and writes the item ids back as @CB- tags.
//
// Usage in a GitHub Actions workflow:
//
//	CODEBEAMER_API_URL=https://codebeamer.example.com/api/v3 \
//	CODEBEAMER_USERNAME=svc-sync \
//	CODEBEAMER_PASSWORD=*** \
//	CODEBEAMER_TRACKER_ID=1234 \
//	featuresync sync
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	workDir    string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "featuresync",
		Short: "Sync feature file requirements to Codebeamer",
		Long: `featuresync extracts @ADS- requirement blocks from Gherkin feature files,
creates a Codebeamer tracker item for each one that is not linked yet, and
writes the returned item id back into the file as a @CB- tag.`,
		Version:       version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <workdir>/.featuresync.yaml when present)")
	cmd.PersistentFlags().StringVar(&opts.workDir, "workdir", "", "repository working directory (default from config, else \".\")")

	cmd.AddCommand(
		newSyncCmd(opts),
		newParseCmd(),
		newCheckCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the featuresync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "featuresync %s\n", version)
		},
	}
}
