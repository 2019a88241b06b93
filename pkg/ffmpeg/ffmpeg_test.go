package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autocut/internal/types"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner records calls and writes a file at the last argument, the way
// ffmpeg writes its output.
type fakeRunner struct {
	calls  []call
	output string
	fail   func(args []string) bool
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.fail != nil && f.fail(args) {
		return []byte("Conversion failed!"), errors.New("exit status 1")
	}
	if last := args[len(args)-1]; last != "-" && strings.Contains(last, string(filepath.Separator)) {
		if err := os.WriteFile(last, []byte("media"), 0o644); err != nil {
			return nil, err
		}
	}
	return []byte(f.output), nil
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080},
			{"codec_type": "audio"}
		],
		"format": {"duration": "300.480000"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, types.MediaInfo{Duration: 300.48, HasAudio: true, HasVideo: true, Width: 1920, Height: 1080}, info)

	info, err = parseProbe([]byte(`{"streams":[{"codec_type":"video","duration":"12.5"}],"format":{}}`))
	require.NoError(t, err)
	assert.False(t, info.HasAudio)
	assert.Equal(t, 12.5, info.Duration)

	_, err = parseProbe([]byte(`{"streams":[],"format":{}}`))
	assert.Error(t, err)
	_, err = parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseSceneTimes(t *testing.T) {
	output := `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'v1.mp4':
[Parsed_showinfo_1 @ 0x7f] n:   0 pts:  12800 pts_time:12.8    duration:512
[Parsed_showinfo_1 @ 0x7f] n:   1 pts:  48128 pts_time:47.0    duration:512
[Parsed_showinfo_1 @ 0x7f] n:   2 pts:  48128 pts_time:47.0    duration:512
[Parsed_showinfo_1 @ 0x7f] n:   3 pts:  1024  pts_time:1.0     duration:512
frame=    4 fps=0.0 q=-0.0 Lsize=N/A time=00:05:00.00`
	assert.Equal(t, []float64{1, 12.8, 47}, parseSceneTimes(output))
	assert.Empty(t, parseSceneTimes("no scenes"))
}

var fastRetry = util.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestProbeWrapsFailure(t *testing.T) {
	f := &fakeRunner{fail: func([]string) bool { return true }}
	tool := New("", "").WithRunner(f.run)
	tool.Retry = fastRetry
	_, err := tool.Probe(context.Background(), "/x/v1.mp4")
	assert.True(t, apperrors.Is(err, apperrors.CodeAdapter))
	require.Len(t, f.calls, 2)
	assert.Equal(t, "ffprobe", f.calls[0].name)
}

func TestDetectScenesRetriesTransientFailure(t *testing.T) {
	attempts := 0
	f := &fakeRunner{
		output: "[Parsed_showinfo_1 @ 0x1] n:0 pts:1 pts_time:12.5 pos:1\n",
		fail: func([]string) bool {
			attempts++
			return attempts == 1
		},
	}
	tool := New("", "").WithRunner(f.run)
	tool.Retry = fastRetry

	points, err := tool.DetectScenes(context.Background(), "/x/v1.mp4", 0.3)
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5}, points)
	assert.Len(t, f.calls, 2)
}

func TestCutFallsBackToReencode(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{fail: func(args []string) bool {
		return lo.Contains(args, "copy")
	}}
	tool := New("/opt/ffmpeg", "").WithRunner(f.run)

	out := filepath.Join(dir, "clip.mp4")
	thumb := filepath.Join(dir, "clip.jpg")
	err := tool.Cut(context.Background(), "/src/v1.mp4", types.TimeRange{Start: 25.5, End: 118.3}, out, thumb)

	require.NoError(t, err)
	require.Len(t, f.calls, 3)
	assert.Equal(t, "/opt/ffmpeg", f.calls[0].name)
	assert.Equal(t, []string{"-hide_banner", "-y", "-ss", "25.500", "-i", "/src/v1.mp4", "-t", "92.800",
		"-c", "copy", "-avoid_negative_ts", "1", out}, f.calls[0].args)
	assert.Contains(t, f.calls[1].args, "libx264")
	assert.Contains(t, f.calls[2].args, "-vframes")
	assert.FileExists(t, thumb)
}

func TestMuxWritesThroughTemporaryFile(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{}
	out := filepath.Join(dir, "v1_mixed.mp4")

	require.NoError(t, New("", "").WithRunner(f.run).Mux(context.Background(), "v1.mp4", "v1.mp3", out))

	assert.FileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "v1_mixed.part.mp4"))
	assert.Equal(t, filepath.Join(dir, "v1_mixed.part.mp4"), f.calls[0].args[len(f.calls[0].args)-1])
}

func TestBurnSubtitlesFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{fail: func([]string) bool { return true }}
	out := filepath.Join(dir, "v1_with_subtitle.mp4")

	err := New("", "").WithRunner(f.run).BurnSubtitles(context.Background(), "v1.mp4",
		[]types.CaptionEntry{{Start: 0, Duration: 1, Text: "hi"}}, out)

	assert.True(t, apperrors.Is(err, apperrors.CodeAdapter))
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "v1_with_subtitle.burn.srt"))
	require.Len(t, f.calls, 1)
	assert.Contains(t, strings.Join(f.calls[0].args, " "), "subtitles='")
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `'C\:/jobs/it\'s/v1.srt'`, EscapeFilterPath(`C:/jobs/it's/v1.srt`))
}
