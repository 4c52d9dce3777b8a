// Package cli implements the harvest command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvest-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Incrementally harvest trackers into a search engine",
	Long: `harvest reads change-tracked records from configured sources
(bugzilla trackers, mailing-list archives, twitter searches, github
repositories), caches the raw payloads, enriches each record with
derived and identity fields, and bulk-indexes both tiers into a
search engine. Reruns resume from the last indexed watermark.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.harvest/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
