package deps

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"autocut/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notFoundErr(command string) error {
	return &exec.Error{Name: command, Err: exec.ErrNotFound}
}

func TestPathResolverResolvePrefersConfiguredPath(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "ffmpeg-custom")
	if err := os.WriteFile(binPath, []byte("ffmpeg"), 0o755); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{
				Command:     "ffmpeg",
		ConfiguredPath: binPath,
	})

	if state.Status != DependencyStatusOK {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusOK)
	}
	if state.Source != DependencySourceConfig {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceConfig)
	}
	if state.ResolvedPath != binPath {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, binPath)
	}
}

func TestPathResolverResolveFallsBackToLookPath(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		if file != "ffmpeg" {
			t.Fatalf("LookPath() received %q, want %q", file, "ffmpeg")
		}
		return "/mock/bin/ffmpeg", nil
	}

	state := resolver.Resolve(DependencySpec{ID: "ffmpeg", Command: "ffmpeg"})

	if state.Status != DependencyStatusOK {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusOK)
	}
	if state.Source != DependencySourceLookPath {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceLookPath)
	}
	if state.ResolvedPath != "/mock/bin/ffmpeg" {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, "/mock/bin/ffmpeg")
	}
}

func TestPathResolverResolveReportsMissingWhenNotFound(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{ID: "ffmpeg", Command: "ffmpeg"})

	if state.Status != DependencyStatusMissing {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusMissing)
	}
	if state.Source != DependencySourceLookPath {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceLookPath)
	}
	if state.ResolvedPath != "" {
		t.Fatalf("state.ResolvedPath = %q, want empty", state.ResolvedPath)
	}
	if state.Error == "" {
		t.Fatalf("state.Error should not be empty")
	}
}

func TestPathResolverResolveConfiguredMissingReturnsMissing(t *testing.T) {
	missingPath := filepath.Join(t.TempDir(), "missing-ffmpeg")

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}

	state := resolver.Resolve(DependencySpec{
				Command:     "ffmpeg",
		ConfiguredPath: missingPath,
	})

	if state.Status != DependencyStatusMissing {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusMissing)
	}
	if state.Source != DependencySourceConfig {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceConfig)
	}
	if state.ResolvedPath != missingPath {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, missingPath)
	}
	if state.Error == "" {
		t.Fatalf("state.Error should not be empty")
	}
}

func TestPathResolverResolveConfiguredStatFailureReturnsError(t *testing.T) {
	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "", notFoundErr(file)
	}
	resolver.AbsPath = func(path string) (string, error) {
		return "/mock/configured/path", nil
	}
	resolver.Stat = func(name string) (os.FileInfo, error) {
		if name != "/mock/configured/path" {
			t.Fatalf("Stat() received %q, want %q", name, "/mock/configured/path")
		}
		return nil, errors.New("permission denied")
	}

	state := resolver.Resolve(DependencySpec{
				Command:     "ffmpeg",
		ConfiguredPath: "ignored",
	})

	if state.Status != DependencyStatusError {
		t.Fatalf("state.Status = %q, want %q", state.Status, DependencyStatusError)
	}
	if state.Source != DependencySourceConfig {
		t.Fatalf("state.Source = %q, want %q", state.Source, DependencySourceConfig)
	}
	if state.ResolvedPath != "/mock/configured/path" {
		t.Fatalf("state.ResolvedPath = %q, want %q", state.ResolvedPath, "/mock/configured/path")
	}
	if !strings.Contains(state.Error, "permission denied") {
		t.Fatalf("state.Error = %q, want to contain %q", state.Error, "permission denied")
	}
}

func TestBuildDependencyInventoryHintsByProvider(t *testing.T) {
	bin := config.Bin{Ffmpeg: "/opt/ffmpeg/bin/ffmpeg"}

	ytdlp := BuildDependencyInventory(bin, "ytdlp")
	tubedown := BuildDependencyInventory(bin, "tubedown")

	require.Len(t, ytdlp, 3)
	ffmpegSpec, ok := findDependencySpec(ytdlp, "ffmpeg")
	require.True(t, ok)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", ffmpegSpec.ConfiguredPath)

	a, _ := findDependencySpec(ytdlp, "yt-dlp")
	b, _ := findDependencySpec(tubedown, "yt-dlp")
	assert.Equal(t, DependencyTierMust, b.Tier)
	assert.NotEqual(t, a.Hint, b.Hint)
	assert.Contains(t, b.Hint, "caption")
}

func TestCheckDependencyStoresResolvedPaths(t *testing.T) {
	old := config.Conf
	t.Cleanup(func() { config.Conf = old })
	config.Conf.Bin = config.Bin{}

	resolver := NewPathResolver()
	resolver.LookPath = func(file string) (string, error) {
		return "/usr/bin/" + file, nil
	}
	require.NoError(t, checkDependency(resolver))
	assert.Equal(t, "/usr/bin/ffmpeg", config.Conf.Bin.Ffmpeg)
	assert.Equal(t, "/usr/bin/ffprobe", config.Conf.Bin.Ffprobe)
	assert.Equal(t, "/usr/bin/yt-dlp", config.Conf.Bin.Ytdlp)

	config.Conf.Bin = config.Bin{}
	resolver.LookPath = func(file string) (string, error) {
		if file == "ffprobe" {
			return "", notFoundErr(file)
		}
		return "/usr/bin/" + file, nil
	}
	err := checkDependency(resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffprobe")
	assert.NotContains(t, err.Error(), "ffmpeg,")
}

func TestFormatDependencyReport(t *testing.T) {
	assert.Equal(t, "No dependencies to diagnose.", FormatDependencyReport(nil))

	report := FormatDependencyReport([]DependencyState{{
		DependencySpec: DependencySpec{ID: "yt-dlp", Tier: DependencyTierMust, Hint: "install it"},
		Status:         DependencyStatusMissing,
		Error:          "executable file not found",
	}})
	assert.Contains(t, report, "- yt-dlp [MUST]: missing | path=unknown | source=n/a")
	assert.Contains(t, report, "error: executable file not found")
	assert.Contains(t, report, "hint: install it")
}

func findDependencySpec(specs []DependencySpec, id string) (DependencySpec, bool) {
	for _, spec := range specs {
		if spec.ID == id {
			return spec, true
		}
	}
	return DependencySpec{}, false
}
