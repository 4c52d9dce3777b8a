package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

var metricsAddr string

var syncCmd = &cobra.Command{
	Use:   "sync [source-name...]",
	Short: "Harvest sources into the search engine",
	Long: `Runs the harvest cycle for the named sources, or for every
configured source when no names are given. Each run resumes from the
last indexed watermark.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"expose Prometheus metrics on this address while syncing (e.g. :9099)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sources, err := selectSources(cfg, args)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server: %v", err)
			}
		}()
		defer server.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for _, src := range sources {
		p, err := buildPipeline(ctx, cfg, src)
		if err != nil {
			return fmt.Errorf("building pipeline for %s: %w", src.Name, err)
		}

		cmd.Printf("Harvesting %s into %s...\n", src.Name, p.source.Index)
		start := time.Now()
		stats, err := p.harvester.Run(ctx)
		if closeErr := p.Close(); closeErr != nil {
			logger.Warn("closing pipeline for %s: %v", src.Name, closeErr)
		}
		if err != nil {
			return fmt.Errorf("harvesting %s: %w", src.Name, err)
		}

		cmd.Printf("%s: %d ids listed, %d records fetched, %d docs indexed in %s (cursor %s)\n",
			src.Name, stats.IDsListed, stats.RecordsFetched, stats.DocsIndexed,
			time.Since(start).Round(time.Second), stats.Cursor)
	}

	return nil
}
