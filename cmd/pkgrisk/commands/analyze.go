package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pkgrisk/analyzer/internal/model"
)

// NewAnalyzeCommand runs the full pipeline against one named package and
// prints the resulting analysis as JSON.
func NewAnalyzeCommand() *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "analyze <ecosystem> <package>",
		Short: "Run the full analysis pipeline against a single package",
		Args:  cobra.ExactArgs(2),
		RunE:  runAnalyze,
	}
	return cobraCmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := NewApp()
	if err != nil {
		return err
	}

	ref := model.PackageRef{Ecosystem: model.Ecosystem(args[0]), Name: args[1]}
	if _, err := findAdapter(app, ref.Ecosystem); err != nil {
		return err
	}

	analysis, err := app.Pipeline.Analyze(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", ref, err)
	}

	printGradeBanner(ref, analysis)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}

// printGradeBanner writes a one-line colored summary to stderr ahead of
// the JSON payload, so a terminal user sees the grade at a glance
// without having to find it in the encoded output.
func printGradeBanner(ref model.PackageRef, analysis model.Analysis) {
	if analysis.Scores == nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "%s: not scorable (%s)\n", ref, analysis.Availability)
		return
	}
	c := gradeColor(analysis.Scores.Grade)
	color.New(c).Fprintf(os.Stderr, "%s: %s (%.1f/100, %s risk)\n", ref, analysis.Scores.Grade, analysis.Scores.Overall, analysis.Scores.RiskTier)
}

func gradeColor(grade model.Grade) color.Attribute {
	switch grade {
	case model.GradeA:
		return color.FgGreen
	case model.GradeB:
		return color.FgCyan
	case model.GradeC:
		return color.FgYellow
	default:
		return color.FgRed
	}
}
