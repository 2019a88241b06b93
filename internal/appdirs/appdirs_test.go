package appdirs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeps records which platform lookups resolve performs.
type fakeDeps struct {
	env        map[string]string
	exe        string
	exeErr     error
	configRoot string
	cacheRoot  string
	calls      []string
}

func (f *fakeDeps) build(goos string) resolveDeps {
	return resolveDeps{
		goos:   goos,
		getenv: func(key string) string { return f.env[key] },
		executable: func() (string, error) {
			f.calls = append(f.calls, "executable")
			return f.exe, f.exeErr
		},
		userConfigDir: func() (string, error) {
			f.calls = append(f.calls, "config")
			return f.configRoot, nil
		},
		userCacheDir: func() (string, error) {
			f.calls = append(f.calls, "cache")
			return f.cacheRoot, nil
		},
	}
}

func TestResolveLayouts(t *testing.T) {
	exe := filepath.Join("/", "apps", "AutoCut", "autocut.exe")
	portable := underRoot(filepath.Join(filepath.Dir(exe), "data"), true)
	configRoot := filepath.Join("C:", "Users", "alice", "AppData", "Roaming")
	cacheRoot := filepath.Join("C:", "Users", "alice", "AppData", "Local")

	tests := []struct {
		name      string
		goos      string
		env       map[string]string
		want      Paths
		wantCalls []string
	}{
		{
			name:      "portable when env is true",
			goos:      "linux",
			env:       map[string]string{PortableEnv: "true"},
			want:      portable,
			wantCalls: []string{"executable"},
		},
		{
			name:      "windows defaults to portable",
			goos:      "windows",
			want:      portable,
			wantCalls: []string{"executable"},
		},
		{
			name: "windows with portable switched off uses user dirs",
			goos: "windows",
			env:  map[string]string{PortableEnv: "0"},
			want: Paths{
				ConfigDir:  filepath.Join(configRoot, "AutoCut"),
				ConfigFile: filepath.Join(configRoot, "AutoCut", "config.toml"),
				LogDir:     filepath.Join(cacheRoot, "AutoCut", "logs"),
				OutputDir:  filepath.Join(cacheRoot, "AutoCut", "output"),
				CacheDir:   filepath.Join(cacheRoot, "AutoCut", "cache"),
			},
			wantCalls: []string{"config", "cache"},
		},
		{
			name: "non windows keeps relative defaults",
			goos: "linux",
			want: Paths{
				ConfigDir:  "config",
				ConfigFile: filepath.Join("config", "config.toml"),
				LogDir:     ".",
				OutputDir:  ".",
				CacheDir:   "cache",
			},
		},
		{
			name: "home overrides every other layout",
			goos: "windows",
			env:  map[string]string{HomeEnv: " /srv/autocut/ ", PortableEnv: "1"},
			want: Paths{
				ConfigDir:  filepath.Join("/srv/autocut", "config"),
				ConfigFile: filepath.Join("/srv/autocut", "config", "config.toml"),
				LogDir:     filepath.Join("/srv/autocut", "logs"),
				OutputDir:  filepath.Join("/srv/autocut", "output"),
				CacheDir:   filepath.Join("/srv/autocut", "cache"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeDeps{env: tt.env, exe: exe, configRoot: configRoot, cacheRoot: cacheRoot}
			got, err := resolve(f.build(tt.goos))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, f.calls)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	f := &fakeDeps{env: map[string]string{PortableEnv: "1"}, exeErr: errors.New("no executable")}
	_, err := resolve(f.build("linux"))
	assert.ErrorContains(t, err, "no executable")

	f = &fakeDeps{exeErr: errors.New("no executable")}
	_, err = resolve(f.build("windows"))
	assert.ErrorContains(t, err, "no executable", "portable-by-default on windows")

	f = &fakeDeps{env: map[string]string{PortableEnv: "false"}, cacheRoot: "x"}
	_, err = resolve(f.build("windows"))
	assert.ErrorContains(t, err, "user config dir is empty")
}

func TestPortableSwitch(t *testing.T) {
	for value, want := range map[string][2]bool{
		"":         {false, false},
		"0":        {false, true},
		"1":        {true, true},
		"TRUE":     {true, true},
		"  true  ": {true, true},
		"false":    {false, true},
		"maybe":    {false, false},
	} {
		portable, set := portableSwitch(value)
		assert.Equal(t, want[0], portable, "portable %q", value)
		assert.Equal(t, want[1], set, "set %q", value)
	}
}
