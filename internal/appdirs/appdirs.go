// Package appdirs decides where AutoCut keeps its config, logs, job
// directories and database.
package appdirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	PortableEnv = "AUTOCUT_PORTABLE"
	// HomeEnv puts every directory under one root, e.g. a container volume.
	HomeEnv = "AUTOCUT_HOME"

	appName        = "AutoCut"
	configFileName = "config.toml"
)

type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	OutputDir  string
	CacheDir   string
}

type resolveDeps struct {
	goos          string
	getenv        func(string) string
	executable    func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}

func Resolve() (Paths, error) {
	return resolve(resolveDeps{
		goos:          runtime.GOOS,
		getenv:        os.Getenv,
		executable:    os.Executable,
		userConfigDir: os.UserConfigDir,
		userCacheDir:  os.UserCacheDir,
	})
}

// Windows builds ship as a folder next to the executable, so portable is the
// default there unless AUTOCUT_PORTABLE is explicitly switched off.
func resolve(rawDeps resolveDeps) (Paths, error) {
	deps := withDefaults(rawDeps)
	if home := strings.TrimSpace(deps.getenv(HomeEnv)); home != "" {
		return underRoot(filepath.Clean(home), false), nil
	}
	portable, set := portableSwitch(deps.getenv(PortableEnv))
	switch {
	case portable:
		return resolvePortable(deps)
	case deps.goos != "windows":
		return underRoot(".", false).flat(), nil
	case set:
		return resolveWindows(deps)
	default:
		return resolvePortable(deps)
	}
}

// portableSwitch parses AUTOCUT_PORTABLE. set is false when the value is
// empty or not a boolean.
func portableSwitch(value string) (portable, set bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, false
	}
	return v, true
}

func withDefaults(deps resolveDeps) resolveDeps {
	if deps.goos == "" {
		deps.goos = runtime.GOOS
	}
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}
	if deps.executable == nil {
		deps.executable = os.Executable
	}
	if deps.userConfigDir == nil {
		deps.userConfigDir = os.UserConfigDir
	}
	if deps.userCacheDir == nil {
		deps.userCacheDir = os.UserCacheDir
	}
	return deps
}

func resolvePortable(deps resolveDeps) (Paths, error) {
	executablePath, err := deps.executable()
	if err != nil {
		return Paths{}, err
	}

	return underRoot(filepath.Join(filepath.Dir(executablePath), "data"), true), nil
}

func underRoot(dataDir string, portable bool) Paths {
	configDir := filepath.Join(dataDir, "config")
	return Paths{
		Portable:   portable,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(dataDir, "logs"),
		OutputDir:  filepath.Join(dataDir, "output"),
		CacheDir:   filepath.Join(dataDir, "cache"),
	}
}

func resolveWindows(deps resolveDeps) (Paths, error) {
	configRoot, err := deps.userConfigDir()
	if err != nil {
		return Paths{}, err
	}
	if strings.TrimSpace(configRoot) == "" {
		return Paths{}, errors.New("user config dir is empty")
	}

	cacheRoot, err := deps.userCacheDir()
	if err != nil {
		return Paths{}, err
	}
	if strings.TrimSpace(cacheRoot) == "" {
		return Paths{}, errors.New("user cache dir is empty")
	}

	configDir := filepath.Join(configRoot, appName)
	cacheBaseDir := filepath.Join(cacheRoot, appName)
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(cacheBaseDir, "logs"),
		OutputDir:  filepath.Join(cacheBaseDir, "output"),
		CacheDir:   filepath.Join(cacheBaseDir, "cache"),
	}, nil
}

// flat keeps logs and job output in the working directory itself, the way
// a checkout is run on Linux and macOS.
func (p Paths) flat() Paths {
	p.ConfigDir = "config"
	p.ConfigFile = filepath.Join(p.ConfigDir, configFileName)
	p.LogDir = "."
	p.OutputDir = "."
	p.CacheDir = "cache"
	return p
}
