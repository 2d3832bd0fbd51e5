package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgrisk/analyzer/internal/model"
)

// ListCommand holds the flags for the list command.
type ListCommand struct {
	limit int
}

// NewListCommand lists the packages an ecosystem adapter currently
// discovers, without fetching or scoring anything.
func NewListCommand() *cobra.Command {
	lc := &ListCommand{}

	cobraCmd := &cobra.Command{
		Use:   "list <ecosystem>",
		Short: "List packages discovered in an ecosystem's registry",
		Args:  cobra.ExactArgs(1),
		RunE:  lc.Run,
	}

	cobraCmd.Flags().IntVarP(&lc.limit, "limit", "n", 0, "maximum packages to list (0 = no limit)")

	return cobraCmd
}

func (lc *ListCommand) Run(cmd *cobra.Command, args []string) error {
	app, err := NewApp()
	if err != nil {
		return err
	}

	eco := model.Ecosystem(args[0])
	adapter, err := findAdapter(app, eco)
	if err != nil {
		return err
	}

	names, err := adapter.ListPackages(cmd.Context(), lc.limit)
	if err != nil {
		return fmt.Errorf("listing %s packages: %w", eco, err)
	}

	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
