// Package cli implements the pathtree command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pathtree/internal/paths"
	"github.com/mesh-intelligence/pathtree/pkg/tree"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
	verbose   bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags  rootFlags
	stderr io.Writer
	log    *logrus.Logger
}

// NewRootCmd creates the top-level "pathtree" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "pathtree",
		Short: "Materialized-path tree storage",
		Long: "pathtree stores hierarchies as rows carrying their ancestor chain,\n" +
			"and answers tree queries with prefix matches on that chain.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.stderr = cmd.ErrOrStderr()
			a.log = newLogger(a.stderr, a.flags.verbose)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite, badger or memory (overrides config.yaml)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newAddCmd(),
		a.newMoveCmd(),
		a.newDeleteCmd(),
		a.newShowCmd(),
		a.newTreeCmd(),
		a.newCheckCmd(),
		a.newRestoreCmd(),
		a.newRebuildDepthCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pathtree:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError marks err as caused by the invocation rather than the system.
func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

// userErrors are the failures a user can fix by changing the invocation or
// the stored data.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrDuplicateID,
	types.ErrConfiguration,
	types.ErrInvalidFormat,
	types.ErrIntegrity,
	types.ErrRestrictedDeletion,
	types.ErrSelfAncestor,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if tree.IsValidationError(err) {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
