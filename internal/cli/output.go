package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pathtree/pkg/tree"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// noArgs and exactArgs report argument-count problems as user errors.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return userError(err)
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printNodes writes nodes as a table, or as a JSON array in JSON mode.
func (a *app) printNodes(w io.Writer, nodes []types.Node) error {
	if a.flags.jsonMode {
		if nodes == nil {
			nodes = []types.Node{}
		}
		return printJSON(w, nodes)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tDEPTH\tNAME")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", n.ID, displayPath(n.Path), n.Depth, n.Name)
	}
	return tw.Flush()
}

// displayPath shows the empty root path as "-".
func displayPath(p string) string {
	if p == "" {
		return "-"
	}
	return p
}

// printForest writes an indented outline of forest.
func printForest(w io.Writer, forest []*tree.TreeNode) {
	for _, t := range forest {
		t.Walk(func(n *tree.TreeNode, level int) {
			label := string(n.Node.ID)
			if n.Node.Name != "" {
				label += " " + n.Node.Name
			}
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", level), label)
		})
	}
}

// printViolations writes one line per violation.
func (a *app) printViolations(w io.Writer, violations []types.Violation) error {
	if a.flags.jsonMode {
		if violations == nil {
			violations = []types.Violation{}
		}
		return printJSON(w, violations)
	}
	if len(violations) == 0 {
		fmt.Fprintln(w, "no violations")
		return nil
	}
	for _, v := range violations {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.NodeID, v.Kind, v.Detail)
	}
	return nil
}
