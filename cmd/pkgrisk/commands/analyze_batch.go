package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pkgrisk/analyzer/internal/model"
)

// AnalyzeBatchCommand holds the flags for the analyze-batch command.
type AnalyzeBatchCommand struct {
	ecosystem string
	limit     int
}

// NewAnalyzeBatchCommand runs the pipeline over every package an
// ecosystem adapter discovers, up to limit, continuing past individual
// failures rather than aborting the batch.
func NewAnalyzeBatchCommand() *cobra.Command {
	bc := &AnalyzeBatchCommand{}

	cobraCmd := &cobra.Command{
		Use:   "analyze-batch",
		Short: "Run the analysis pipeline over many packages in one ecosystem",
		RunE:  bc.Run,
	}

	cobraCmd.Flags().StringVar(&bc.ecosystem, "ecosystem", "", "ecosystem to batch-analyze (npm, pypi, homebrew)")
	cobraCmd.Flags().IntVar(&bc.limit, "limit", 100, "maximum packages to analyze")
	_ = cobraCmd.MarkFlagRequired("ecosystem")

	return cobraCmd
}

func (bc *AnalyzeBatchCommand) Run(cmd *cobra.Command, _ []string) error {
	app, err := NewApp()
	if err != nil {
		return err
	}

	eco := model.Ecosystem(bc.ecosystem)
	adapter, err := findAdapter(app, eco)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	names, err := adapter.ListPackages(ctx, bc.limit)
	if err != nil {
		return fmt.Errorf("listing %s packages: %w", eco, err)
	}

	if app.Metrics != nil {
		app.Metrics.StartBatch(eco, len(names))
		defer app.Metrics.FinishBatch()
	}

	var failures int
	for _, name := range names {
		ref := model.PackageRef{Ecosystem: eco, Name: name}
		if _, err := app.Pipeline.Analyze(ctx, ref); err != nil {
			failures++
			app.Logger.Errorf("analyze-batch: %s: %v", ref, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: done\n", ref)
	}

	if failures > 0 {
		color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "analyze-batch: %d of %d packages failed\n", failures, len(names))
		return fmt.Errorf("analyze-batch: %d of %d packages failed", failures, len(names))
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "analyze-batch: %d packages analyzed\n", len(names))
	return nil
}
