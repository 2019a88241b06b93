// Package deps locates the external binaries the media adapters shell out to.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autocut/config"
	"autocut/log"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type DependencyTier string

const (
	DependencyTierMust     DependencyTier = "must"
	DependencyTierOptional DependencyTier = "optional"
)

type DependencyStatus string

const (
	DependencyStatusOK      DependencyStatus = "ok"
	DependencyStatusMissing DependencyStatus = "missing"
	DependencyStatusError   DependencyStatus = "error"
)

type DependencySource string

const (
	DependencySourceConfig   DependencySource = "config"
	DependencySourceLookPath DependencySource = "lookpath"
)

type DependencySpec struct {
	ID      string
	Command string
	Tier    DependencyTier
	// ConfiguredPath comes from the [bin] config section; empty means PATH.
	ConfiguredPath string
	Hint           string
}

type DependencyState struct {
	DependencySpec
	ResolvedPath string
	Status       DependencyStatus
	Source       DependencySource
	Error        string
}

func (s DependencyState) OK() bool {
	return s.Status == DependencyStatusOK
}

type PathResolver struct {
	LookPath func(file string) (string, error)
	AbsPath  func(path string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

func NewPathResolver() PathResolver {
	return PathResolver{
		LookPath: exec.LookPath,
		AbsPath:  filepath.Abs,
		Stat:     os.Stat,
	}
}

func (r PathResolver) Resolve(spec DependencySpec) DependencyState {
	state := DependencyState{DependencySpec: spec}

	configured := strings.TrimSpace(spec.ConfiguredPath)
	if configured == "" {
		state.Source = DependencySourceLookPath
		path, err := r.LookPath(spec.Command)
		if err != nil {
			state.setError(err)
			return state
		}
		state.Status, state.ResolvedPath = DependencyStatusOK, path
		return state
	}

	state.Source = DependencySourceConfig
	if path, err := r.LookPath(configured); err == nil {
		state.Status, state.ResolvedPath = DependencyStatusOK, path
		return state
	}
	absPath, err := r.AbsPath(configured)
	if err != nil {
		state.ResolvedPath = configured
		state.setError(err)
		return state
	}
	state.ResolvedPath = absPath
	if _, err = r.Stat(absPath); err != nil {
		state.setError(err)
		return state
	}
	state.Status = DependencyStatusOK
	return state
}

func (s *DependencyState) setError(err error) {
	s.Error = err.Error()
	if isMissingPathError(err) {
		s.Status = DependencyStatusMissing
	} else {
		s.Status = DependencyStatusError
	}
}

// BuildDependencyInventory lists the binaries the pipeline needs for the
// given config. yt-dlp is always required since it fetches captions even
// when videos come from the HTTP resolver.
func BuildDependencyInventory(bin config.Bin, downloadProvider string) []DependencySpec {
	ytdlpHint := "Required for video downloads and caption fetching."
	if strings.EqualFold(strings.TrimSpace(downloadProvider), "tubedown") {
		ytdlpHint = "Required for caption fetching; videos come from the HTTP resolver."
	}

	return []DependencySpec{
		{
			ID:             "ffmpeg",
			Command:        "ffmpeg",
			Tier:           DependencyTierMust,
			ConfiguredPath: bin.Ffmpeg,
			Hint:           "Required for muxing, subtitle burning, scene detection and cutting.",
		},
		{
			ID:             "ffprobe",
			Command:        "ffprobe",
			Tier:           DependencyTierMust,
			ConfiguredPath: bin.Ffprobe,
			Hint:           "Required for media duration and audio stream detection.",
		},
		{
			ID:             "yt-dlp",
			Command:        "yt-dlp",
			Tier:           DependencyTierMust,
			ConfiguredPath: bin.Ytdlp,
			Hint:           ytdlpHint,
		},
	}
}

func ResolveDependencyStates(specs []DependencySpec, resolver PathResolver) []DependencyState {
	return lo.Map(specs, func(spec DependencySpec, _ int) DependencyState {
		return resolver.Resolve(spec)
	})
}

// CheckDependency resolves every binary from config.Conf, writes the
// resolved paths back into config.Conf.Bin and fails when a required one is
// missing.
func CheckDependency() error {
	return checkDependency(NewPathResolver())
}

func checkDependency(resolver PathResolver) error {
	states := ResolveDependencyStates(BuildDependencyInventory(config.Conf.Bin, config.Conf.Download.Provider), resolver)
	for _, s := range states {
		if !s.OK() {
			continue
		}
		switch s.ID {
		case "ffmpeg":
			config.Conf.Bin.Ffmpeg = s.ResolvedPath
		case "ffprobe":
			config.Conf.Bin.Ffprobe = s.ResolvedPath
		case "yt-dlp":
			config.Conf.Bin.Ytdlp = s.ResolvedPath
		}
	}

	missing := lo.Filter(states, func(s DependencyState, _ int) bool {
		return s.Tier == DependencyTierMust && !s.OK()
	})
	if len(missing) == 0 {
		return nil
	}
	log.GetLogger().Error("缺少必要依赖", zap.String("report", FormatDependencyReport(states)))
	return fmt.Errorf("missing required dependencies: %s",
		strings.Join(lo.Map(missing, func(s DependencyState, _ int) string { return s.ID }), ", "))
}

func FormatDependencyReport(states []DependencyState) string {
	if len(states) == 0 {
		return "No dependencies to diagnose."
	}

	var b strings.Builder
	b.WriteString("Dependency status")
	for _, s := range states {
		path := lo.Ternary(strings.TrimSpace(s.ResolvedPath) == "", "unknown", s.ResolvedPath)
		source := lo.Ternary(s.Source == "", "n/a", string(s.Source))
		fmt.Fprintf(&b, "\n- %s [%s]: %s | path=%s | source=%s", s.ID, strings.ToUpper(string(s.Tier)), s.Status, path, source)
		if s.Error != "" {
			b.WriteString("\n  error: " + s.Error)
		}
		if s.Hint != "" {
			b.WriteString("\n  hint: " + s.Hint)
		}
	}
	return b.String()
}

func isMissingPathError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "not found") || strings.Contains(message, "cannot find")
}
