package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteIndices bool

var initCmd = &cobra.Command{
	Use:   "init [source-name...]",
	Short: "Create the indices for configured sources",
	Long: `Creates the enriched and raw indices, with per-source mappings,
for the named sources or for every configured source. With --delete,
existing indices are dropped first and the next sync starts from
scratch.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&deleteIndices, "delete", false,
		"drop existing indices before creating them")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sources, err := selectSources(cfg, args)
	if err != nil {
		return err
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

		enriched := p.source.Index
		raw := p.source.RawIndex()

		if deleteIndices {
			cmd.Printf("Deleting %s and %s...\n", enriched, raw)
			if err := p.engine.DeleteIndex(ctx, enriched); err != nil {
				return err
			}
			if err := p.engine.DeleteIndex(ctx, raw); err != nil {
				return err
			}
		}

		if err := p.engine.EnsureIndex(ctx, enriched, p.enricher.Mappings()); err != nil {
			return err
		}
		if err := p.engine.EnsureIndex(ctx, raw, nil); err != nil {
			return err
		}
		if closeErr := p.Close(); closeErr != nil {
			return closeErr
		}

		cmd.Printf("Indices %s and %s ready.\n", enriched, raw)
	}

	return nil
}
