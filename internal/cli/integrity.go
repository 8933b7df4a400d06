package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pathtree/pkg/tree"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func (a *app) newCheckCmd() *cobra.Command {
	var failFast bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify path integrity of every node",
		Long: "Verify the path of every node: format, existing ancestors, no cycles and\n" +
			"consistent parents. Exits with status 1 when violations are found.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				mode := tree.ReportCollect
				if failFast {
					mode = tree.ReportRaise
				}
				violations, err := s.engine.Check(ctx, mode)
				if err != nil && len(violations) == 0 {
					return err
				}
				if perr := a.printViolations(cmd.OutOrStdout(), violations); perr != nil {
					return perr
				}
				if len(violations) > 0 {
					return userError(fmt.Errorf("%d integrity violations: %w", len(violations), types.ErrIntegrity))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first violation")
	return cmd
}

func (a *app) newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Repair paths so that check passes",
		Long: "Rebuild every path from the parent links that survive: malformed paths and\n" +
			"cycle members become roots, references to missing nodes are dropped.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				if err := s.engine.Restore(ctx); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"restored": true})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "tree restored")
				return nil
			})
		},
	}
}

func (a *app) newRebuildDepthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-depth",
		Short: "Recompute the depth cache from paths",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				fixed, err := s.engine.RebuildDepthCache(ctx)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"fixed": fixed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fixed %d rows\n", fixed)
				return nil
			})
		},
	}
}
