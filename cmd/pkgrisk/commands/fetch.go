package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgrisk/analyzer/internal/model"
)

// fetchResult is the JSON shape printed by the fetch command: raw
// registry data, with none of the repo/vuln/LLM/scoring stages run.
type fetchResult struct {
	Metadata model.PackageMetadata `json:"metadata"`
	Install  model.InstallStats    `json:"install_stats"`
	RepoRef  model.RepoRef         `json:"repo_ref,omitempty"`
}

// NewFetchCommand fetches and prints a single package's raw registry
// metadata, skipping repository enrichment, CVE lookup, and scoring.
// Useful for inspecting what an adapter sees without spending a GitHub
// API budget on it.
func NewFetchCommand() *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "fetch <ecosystem> <package>",
		Short: "Fetch raw registry metadata for a single package",
		Args:  cobra.ExactArgs(2),
		RunE:  runFetch,
	}
	return cobraCmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	app, err := NewApp()
	if err != nil {
		return err
	}

	eco := model.Ecosystem(args[0])
	name := args[1]

	adapter, err := findAdapter(app, eco)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	meta, err := adapter.GetPackageMetadata(ctx, name)
	if err != nil {
		return fmt.Errorf("fetching %s/%s metadata: %w", eco, name, err)
	}

	install, err := adapter.GetInstallStats(ctx, name)
	if err != nil {
		app.Logger.Warnf("fetch: install stats unavailable for %s/%s: %v", eco, name, err)
	}

	result := fetchResult{Metadata: meta, Install: install}
	if ref, ok := adapter.GetSourceRepo(meta); ok {
		result.RepoRef = ref
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
