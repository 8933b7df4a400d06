// Package paths resolves the pathtree configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".pathtree"
	DefaultDataDirName   = ".pathtree-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "PATHTREE_CONFIG_DIR"
	EnvDataDir   = "PATHTREE_DATA_DIR"
)

// File names inside the resolved directories.
const (
	ConfigFileName = "config.yaml"
	ExportFileName = "nodes.jsonl"
)

const appName = "pathtree"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// Dirs is the pair of directories one CLI invocation works in.
type Dirs struct {
	Config string
	Data   string
}

// ConfigFile returns the path of config.yaml.
func (d Dirs) ConfigFile() string {
	return filepath.Join(d.Config, ConfigFileName)
}

// ExportFile returns the default JSONL export path.
func (d Dirs) ExportFile() string {
	return filepath.Join(d.Data, ExportFileName)
}

// Resolve picks both directories. dataFromConfig is consulted after the
// config directory is known and returns the data_dir value of its
// config.yaml, or "".
func Resolve(configFlag, dataFlag string, dataFromConfig func(configDir string) string) (Dirs, error) {
	cfg, err := ResolveConfigDir(configFlag)
	if err != nil {
		return Dirs{}, err
	}
	var fromConfig string
	if dataFromConfig != nil {
		fromConfig = dataFromConfig(cfg)
	}
	data, err := ResolveDataDir(dataFlag, fromConfig)
	if err != nil {
		return Dirs{}, err
	}
	return Dirs{Config: cfg, Data: data}, nil
}

// platformDefault joins appName onto the XDG directory named by xdgEnv on
// Linux, falling back to linuxHome under the home directory. Other systems
// use os.UserConfigDir.
func platformDefault(xdgEnv string, linuxHome ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, linuxHome...)
	return filepath.Join(append(parts, appName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/pathtree (fallback ~/.config/pathtree)
// macOS:   ~/Library/Application Support/pathtree
// Windows: %APPDATA%/pathtree
func DefaultConfigDir() (string, error) {
	return platformDefault("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
// On macOS and Windows it matches DefaultConfigDir.
//
// Linux:   $XDG_DATA_HOME/pathtree (fallback ~/.local/share/pathtree)
func DefaultDataDir() (string, error) {
	return platformDefault("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir returns the configuration directory:
// flag > PATHTREE_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(func() (string, error) { return DefaultConfigDir() }, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the data directory:
// flag > config.yaml data_dir > PATHTREE_DATA_DIR > $(CWD)/.pathtree-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	return firstAbs(func() (string, error) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, DefaultDataDirName), nil
	}, flag, configValue, os.Getenv(EnvDataDir))
}

// firstAbs returns the first non-empty candidate made absolute, or the
// fallback when all are empty.
func firstAbs(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
