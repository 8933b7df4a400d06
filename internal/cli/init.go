package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend          string `yaml:"backend"`
	DataDir          string `yaml:"data_dir,omitempty"`
	types.TreeConfig `yaml:",inline"`
}

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize pathtree storage",
		Long:  "Create configuration and data directories, then initialize the storage backend.",
		Args:  noArgs,
		RunE:  a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	s, dirs, err := a.resolve()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dirs.Config, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	written, err := writeConfigIfMissing(dirs.ConfigFile(), s, a.flags.dataDir)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Attach once so the backend lays out its files.
	sess, err := a.attach(s)
	if err != nil {
		return err
	}
	if err := sess.close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"config":  dirs.ConfigFile(),
		"data":    dirs.Data,
		"backend": s.Backend,
	}).Debug("initialized")

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"config_file":    dirs.ConfigFile(),
			"config_written": written,
			"data_dir":       dirs.Data,
			"backend":        s.Backend,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pathtree initialized in %s (%s backend)\n", dirs.Data, s.Backend)
	return nil
}

// writeConfigIfMissing creates config.yaml from s if the file does not
// exist. dataDir is recorded only when given explicitly. It reports
// whether the file was written.
func writeConfigIfMissing(path string, s settings, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := configFile{
		Backend:    s.Backend,
		DataDir:    dataDir,
		TreeConfig: s.TreeConfig,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}
