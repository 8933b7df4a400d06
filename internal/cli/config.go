package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/pathtree/internal/paths"
	"github.com/mesh-intelligence/pathtree/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend = "backend"
	cfgKeyDataDir = "data_dir"
)

// settings is the content of config.yaml. Tree options sit at the top level
// next to the backend keys.
type settings struct {
	Backend          string `mapstructure:"backend"`
	DataDir          string `mapstructure:"data_dir"`
	types.TreeConfig `mapstructure:",squash"`
}

// treeDefaults maps the tree option keys to their default values.
func treeDefaults() map[string]string {
	d := types.DefaultTreeConfig()
	return map[string]string{
		"ancestry_column":    d.AncestryColumn,
		"depth_cache_column": d.DepthCacheColumn,
		"id_column":          d.IDColumn,
		"name_column":        d.NameColumn,
		"orphan_strategy":    d.OrphanStrategy,
		"encoding":           d.Encoding,
		"key_kind":           d.KeyKind,
		"segment_pattern":    d.SegmentPattern,
		"cascade":            d.Cascade,
	}
}

// newViper returns a viper instance with every default set and config.yaml
// looked up in configDir.
func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	for k, val := range treeDefaults() {
		v.SetDefault(k, val)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	return v
}

// loadSettings reads config.yaml from configDir. A missing file yields the
// defaults.
func loadSettings(configDir string) (settings, error) {
	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// dataDirFromConfig returns data_dir from config.yaml in configDir, or ""
// when the file is missing or unreadable.
func dataDirFromConfig(configDir string) string {
	if _, err := os.Stat(configDir); err != nil {
		return ""
	}
	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.GetString(cfgKeyDataDir)
}

// resolve loads the settings and directories for one invocation. Flags
// override config.yaml.
func (a *app) resolve() (settings, paths.Dirs, error) {
	dirs, err := paths.Resolve(a.flags.configDir, a.flags.dataDir, dataDirFromConfig)
	if err != nil {
		return settings{}, paths.Dirs{}, fmt.Errorf("resolve directories: %w", err)
	}
	s, err := loadSettings(dirs.Config)
	if err != nil {
		return settings{}, paths.Dirs{}, err
	}
	if a.flags.backend != "" {
		s.Backend = a.flags.backend
	}
	s.DataDir = dirs.Data
	return s, dirs, nil
}
