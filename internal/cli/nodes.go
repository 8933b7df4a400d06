package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pathtree/pkg/tree"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

func (a *app) newAddCmd() *cobra.Command {
	var parent, id string
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a node",
		Long:  "Create a node, as a root or under --parent. The backend assigns the id unless --id is given.",
		Args:  rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := types.Node{ID: types.ID(id)}
			if len(args) == 1 {
				n.Name = args[0]
			}
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				var p *types.Node
				if parent != "" {
					found, err := s.find(ctx, parent)
					if err != nil {
						return err
					}
					p = &found
				} else {
					n.Path = s.engine.Codec().Root()
				}
				created, err := s.engine.Create(ctx, n, p)
				if err != nil {
					return err
				}
				return a.printNode(cmd, created)
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent node id")
	cmd.Flags().StringVar(&id, "id", "", "explicit node id")
	return cmd
}

func (a *app) newMoveCmd() *cobra.Command {
	var toRoot bool
	cmd := &cobra.Command{
		Use:   "move <id> [parent-id]",
		Short: "Reparent a node and its subtree",
		Args:  rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parent types.ID
			switch {
			case len(args) == 2 && toRoot:
				return userError(fmt.Errorf("--root conflicts with parent-id %q", args[1]))
			case len(args) == 2:
				parent = types.ID(args[1])
			case !toRoot:
				return userError(errors.New("move needs a parent-id or --root"))
			}
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				if _, err := s.find(ctx, args[0]); err != nil {
					return err
				}
				if parent != "" {
					if _, err := s.find(ctx, string(parent)); err != nil {
						return err
					}
				}
				moved, err := s.engine.Move(ctx, types.ID(args[0]), parent)
				if err != nil {
					return err
				}
				return a.printNode(cmd, moved)
			})
		},
	}
	cmd.Flags().BoolVar(&toRoot, "root", false, "make the node a root")
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node, applying the orphan strategy to its descendants",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				if _, err := s.find(ctx, args[0]); err != nil {
					return err
				}
				if strategy == "" {
					strategy = s.engine.Config().OrphanStrategy
				}
				if err := s.engine.DestroyWith(ctx, types.ID(args[0]), strategy); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": args[0], "orphan_strategy": strategy})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", args[0], strategy)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&strategy, "orphans", "", "orphan strategy for this delete: destroy, rootify, adopt, restrict or none")
	return cmd
}

// relations lists the relations show can print, in display order.
var relations = []tree.Relation{
	tree.Ancestors,
	tree.Children,
	tree.Siblings,
	tree.Descendants,
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a node with its relations",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context, s *session) error {
				n, err := s.find(ctx, args[0])
				if err != nil {
					return err
				}
				p, err := s.engine.PreloadDescendants(ctx, []types.Node{n}, -1)
				if err != nil {
					return err
				}
				if err := p.LoadAncestors(ctx, []types.Node{n}); err != nil {
					return err
				}
				if err := p.LoadSiblings(ctx, []types.Node{n}); err != nil {
					return err
				}

				related := make(map[tree.Relation][]types.Node, len(relations))
				for _, rel := range relations {
					var nodes []types.Node
					switch rel {
					case tree.Ancestors:
						nodes, err = p.Ancestors(ctx, n)
					case tree.Children:
						nodes, err = p.Children(ctx, n)
					case tree.Siblings:
						nodes, err = p.Siblings(ctx, n)
					case tree.Descendants:
						nodes, err = p.Descendants(ctx, n)
					}
					if err != nil {
						return err
					}
					related[rel] = nodes
				}
				return a.printShow(cmd, n, related)
			})
		},
	}
}

func (a *app) printNode(cmd *cobra.Command, n types.Node) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), n)
	}
	return a.printNodes(cmd.OutOrStdout(), []types.Node{n})
}

func (a *app) printShow(cmd *cobra.Command, n types.Node, related map[tree.Relation][]types.Node) error {
	w := cmd.OutOrStdout()
	if a.flags.jsonMode {
		out := map[string]any{"node": n}
		for rel, nodes := range related {
			ids := make([]types.ID, 0, len(nodes))
			for _, m := range nodes {
				ids = append(ids, m.ID)
			}
			out[string(rel)] = ids
		}
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "ID:     %s\n", n.ID)
	fmt.Fprintf(w, "Name:   %s\n", n.Name)
	fmt.Fprintf(w, "Path:   %s\n", displayPath(n.Path))
	fmt.Fprintf(w, "Depth:  %d\n", len(related[tree.Ancestors]))
	for _, rel := range relations {
		fmt.Fprintf(w, "%s:", rel)
		for _, m := range related[rel] {
			fmt.Fprintf(w, " %s", m.ID)
		}
		fmt.Fprintln(w)
	}
	return nil
}
