package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the pathtree release.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/pathtree"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pathtree version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pathtree v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
