package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pathtree/pkg/tree"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func (a *app) newTreeCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree [id]",
		Short: "Print the forest, or the subtree under id",
		Long: "Print the forest, or the subtree under id, as an indented outline.\n" +
			"--depth limits the levels shown below each root and needs the depth cache.",
		Args: rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				var roots []types.Node
				if len(args) == 1 {
					n, err := s.find(ctx, args[0])
					if err != nil {
						return err
					}
					roots = []types.Node{n}
				} else {
					var err error
					if roots, err = s.engine.Roots(ctx); err != nil {
						return err
					}
				}

				p, err := s.engine.PreloadDescendants(ctx, roots, depth)
				if err != nil {
					return err
				}
				forest := make([]*tree.TreeNode, 0, len(roots))
				for _, r := range roots {
					t, ok := p.Tree(r.ID)
					if !ok {
						return fmt.Errorf("node %s missing from preload", r.ID)
					}
					forest = append(forest, t)
				}

				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), forest)
				}
				printForest(cmd.OutOrStdout(), forest)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", -1, "levels below each root to show (-1 for all)")
	return cmd
}
