package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pathtree/internal/sqlite"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every node to a JSONL file",
		Long:  "Write every node to a JSONL file, parents before children. The default file is nodes.jsonl in the data directory.",
		Args:  rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dirs, err := a.resolve()
			if err != nil {
				return err
			}
			path := dirs.ExportFile()
			if len(args) == 1 {
				path = args[0]
			}

			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				nodes, err := s.engine.Store().Query(ctx, types.All())
				if err != nil {
					return fmt.Errorf("loading nodes: %w", err)
				}
				if err := sqlite.ExportJSONL(path, s.engine.SortByAncestry(nodes)); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"file": path, "exported": len(nodes)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d nodes to %s\n", len(nodes), path)
				return nil
			})
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Load nodes from a JSONL file",
		Long: "Load nodes from a JSONL file. Existing ids are skipped. Records carrying\n" +
			"parent_id instead of a path get their paths built from those links.",
		Args: rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dirs, err := a.resolve()
			if err != nil {
				return err
			}
			path := dirs.ExportFile()
			if len(args) == 1 {
				path = args[0]
			}

			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				res, err := sqlite.ImportJSONL(ctx, s.engine.Store(), path)
				if err != nil {
					return err
				}

				var unreachable []types.ID
				if len(res.Parents) > 0 {
					if unreachable, err = s.engine.MigrateFromParentIDs(ctx, res.Parents); err != nil {
						return err
					}
				}
				if restore {
					if err := s.engine.Restore(ctx); err != nil {
						return err
					}
				}

				s.log.WithFields(logrus.Fields{
					"file":        path,
					"created":     res.Created,
					"skipped":     res.Skipped,
					"unreachable": len(unreachable),
				}).Debug("imported nodes")

				if a.flags.jsonMode {
					if unreachable == nil {
						unreachable = []types.ID{}
					}
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"file":        path,
						"created":     res.Created,
						"skipped":     res.Skipped,
						"unreachable": unreachable,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes, skipped %d\n", res.Created, res.Skipped)
				if len(unreachable) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "no root reachable from %v\n", unreachable)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "repair paths after loading")
	return cmd
}
