package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joeycumines/bteng/internal/bt"
	"github.com/joeycumines/bteng/internal/treeview"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the structure of the patrol tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			laps, _ := cmd.Flags().GetInt("laps")
			color, _ := cmd.Flags().GetBool("color")
			root, err := newPatrol(bt.NewBlackboard(nil), patrolParams{Laps: laps, Cost: 0.25})
			if err != nil {
				return err
			}
			tree, err := bt.NewTree(root)
			if err != nil {
				return err
			}
			styles := treeview.Styles{}
			if color {
				styles = treeview.DefaultStyles()
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), treeview.Render(tree, styles))
			return nil
		},
	}
	cmd.Flags().Int("laps", 4, "Number of laps")
	cmd.Flags().Bool("color", false, "Color the output")
	return cmd
}
