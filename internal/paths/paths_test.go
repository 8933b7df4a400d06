package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHome points the home and user-config lookups at fixed directories for
// the duration of the test.
func fakeHome(t *testing.T, home, userConfig string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) { return userConfig, nil }
}

func TestDefaultDirs(t *testing.T) {
	fakeHome(t, "/home/u", "/home/u/Library/Application Support")

	tests := []struct {
		name      string
		xdgEnv    string
		xdgVal    string
		fn        func() (string, error)
		linux     string
		elsewhere string
	}{
		{
			name:      "config with XDG",
			xdgEnv:    "XDG_CONFIG_HOME",
			xdgVal:    "/tmp/xdg-config",
			fn:        DefaultConfigDir,
			linux:     "/tmp/xdg-config/pathtree",
			elsewhere: "/home/u/Library/Application Support/pathtree",
		},
		{
			name:      "config fallback",
			xdgEnv:    "XDG_CONFIG_HOME",
			fn:        DefaultConfigDir,
			linux:     "/home/u/.config/pathtree",
			elsewhere: "/home/u/Library/Application Support/pathtree",
		},
		{
			name:      "data with XDG",
			xdgEnv:    "XDG_DATA_HOME",
			xdgVal:    "/tmp/xdg-data",
			fn:        DefaultDataDir,
			linux:     "/tmp/xdg-data/pathtree",
			elsewhere: "/home/u/Library/Application Support/pathtree",
		},
		{
			name:      "data fallback",
			xdgEnv:    "XDG_DATA_HOME",
			fn:        DefaultDataDir,
			linux:     "/home/u/.local/share/pathtree",
			elsewhere: "/home/u/Library/Application Support/pathtree",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.xdgEnv, tt.xdgVal)
			got, err := tt.fn()
			require.NoError(t, err)
			want := tt.elsewhere
			if runtime.GOOS == "linux" {
				want = tt.linux
			}
			assert.Equal(t, filepath.FromSlash(want), got)
		})
	}
}

func TestDefaultConfigDir_HomeError(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.EqualError(t, err, "no home")
}

func TestResolveConfigDir(t *testing.T) {
	fakeHome(t, "/home/u", "/home/u/cfg")
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string
	}{
		{name: "flag wins over env", flag: "/explicit/config", envVal: "/env/config", wantSub: "/explicit/config"},
		{name: "env wins when flag empty", envVal: "/env/config", wantSub: "/env/config"},
		{name: "platform default when both empty", wantSub: "pathtree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, filepath.FromSlash(tt.wantSub))
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		want        string
	}{
		{name: "flag wins over all", flag: "/flag/data", configValue: "/config/data", envVal: "/env/data", want: "/flag/data"},
		{name: "config.yaml wins over env", configValue: "/config/data", envVal: "/env/data", want: "/config/data"},
		{name: "env wins when flag and config empty", envVal: "/env/data", want: "/env/data"},
		{name: "CWD default when all empty", want: filepath.Join(cwd, DefaultDataDirName)},
		{name: "relative flag becomes absolute", flag: "rel/data", want: filepath.Join(cwd, "rel", "data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			want, err := filepath.Abs(tt.want)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")
	cfgDir := t.TempDir()

	var asked string
	dirs, err := Resolve(cfgDir, "", func(dir string) string {
		asked = dir
		return filepath.Join(dir, "data")
	})
	require.NoError(t, err)

	assert.Equal(t, cfgDir, asked)
	assert.Equal(t, cfgDir, dirs.Config)
	assert.Equal(t, filepath.Join(cfgDir, "data"), dirs.Data)
	assert.Equal(t, filepath.Join(cfgDir, ConfigFileName), dirs.ConfigFile())
	assert.Equal(t, filepath.Join(cfgDir, "data", ExportFileName), dirs.ExportFile())

	t.Run("data flag skips config value", func(t *testing.T) {
		dataDir := t.TempDir()
		dirs, err := Resolve(cfgDir, dataDir, func(string) string { return "/ignored" })
		require.NoError(t, err)
		assert.Equal(t, dataDir, dirs.Data)
	})
}
