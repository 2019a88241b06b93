// Package ffmpeg drives the ffmpeg and ffprobe binaries for probing, muxing,
// subtitle burn-in, scene detection and clip cutting.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"autocut/internal/scene"
	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/srt"
	"autocut/pkg/timecode"
	"autocut/pkg/util"

	"go.uber.org/zap"
)

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Tool implements the media collaborators of the pipeline.
type Tool struct {
	FfmpegPath  string
	FfprobePath string
	// SubtitleStyle is passed to the subtitles filter as force_style when set.
	SubtitleStyle string
	// Retry applies to the read-only calls: probing and scene detection.
	Retry util.RetryPolicy

	run Runner
}

func New(ffmpegPath, ffprobePath string) *Tool {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Tool{FfmpegPath: ffmpegPath, FfprobePath: ffprobePath, Retry: util.DefaultRetryPolicy, run: execRunner}
}

// WithRunner swaps the command runner, for tests.
func (t *Tool) WithRunner(r Runner) *Tool {
	t.run = r
	return t
}

func (t *Tool) ffmpeg(ctx context.Context, op string, args ...string) error {
	output, err := t.run(ctx, t.FfmpegPath, append([]string{"-hide_banner", "-y"}, args...)...)
	if err != nil {
		log.GetLogger().Error("ffmpeg failed", zap.String("op", op), zap.Strings("args", args),
			zap.String("output", tail(string(output), 2000)), zap.Error(err))
		return apperrors.Adapter("ffmpeg "+op, fmt.Errorf("%w: %s", err, tail(string(output), 300)))
	}
	return nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// query runs a command with no side effects, retrying failures.
func (t *Tool) query(ctx context.Context, op, name string, args ...string) ([]byte, error) {
	var output []byte
	err := util.Retry(ctx, op, t.Retry, func() error {
		var err error
		output, err = t.run(ctx, name, args...)
		if err != nil {
			if ctx.Err() != nil {
				return util.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %s", err, tail(string(output), 300))
		}
		return nil
	})
	return output, err
}

func (t *Tool) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	output, err := t.query(ctx, "ffprobe", t.FfprobePath,
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return types.MediaInfo{}, apperrors.Adapter("ffprobe", err)
	}
	info, err := parseProbe(output)
	if err != nil {
		return types.MediaInfo{}, apperrors.Adapter("ffprobe", err)
	}
	return info, nil
}

func parseProbe(output []byte) (types.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info types.MediaInfo
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.Width, info.Height = s.Width, s.Height
			}
		}
		if info.Duration == 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > info.Duration {
				info.Duration = d
			}
		}
	}
	if info.Duration <= 0 {
		return info, fmt.Errorf("media has no duration")
	}
	return info, nil
}

// Mux combines the video stream of videoPath with the audio of audioPath.
func (t *Tool) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	return t.writeAtomically(outputPath, func(tmp string) error {
		return t.ffmpeg(ctx, "mux",
			"-i", videoPath, "-i", audioPath,
			"-map", "0:v:0", "-map", "1:a:0",
			"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
			"-shortest", tmp)
	})
}

func (t *Tool) BurnSubtitles(ctx context.Context, videoPath string, entries []types.CaptionEntry, outputPath string) error {
	srtPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".burn.srt"
	if err := srt.WriteFile(srtPath, entries); err != nil {
		return err
	}
	defer os.Remove(srtPath)

	filter := "subtitles=" + EscapeFilterPath(srtPath)
	if t.SubtitleStyle != "" {
		filter += ":force_style='" + t.SubtitleStyle + "'"
	}
	return t.writeAtomically(outputPath, func(tmp string) error {
		return t.ffmpeg(ctx, "burn subtitles",
			"-i", videoPath, "-vf", filter,
			"-c:v", "libx264", "-preset", "veryfast", "-crf", "20",
			"-c:a", "copy", tmp)
	})
}

var ptsTimeRe = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?)`)

// DetectScenes returns the sorted timestamps ffmpeg reports as scene changes
// above threshold.
func (t *Tool) DetectScenes(ctx context.Context, mediaPath string, threshold float64) ([]float64, error) {
	filter := fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64))
	output, err := t.query(ctx, "scene detection", t.FfmpegPath, "-hide_banner", "-i", mediaPath, "-filter:v", filter, "-an", "-f", "null", "-")
	if err != nil {
		return nil, apperrors.Adapter("scene detection", err)
	}
	return parseSceneTimes(string(output)), nil
}

func parseSceneTimes(output string) []float64 {
	var points []float64
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "showinfo") {
			continue
		}
		if m := ptsTimeRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				points = append(points, v)
			}
		}
	}
	return scene.Sanitize(points)
}

// Cut writes [r.Start, r.End) of sourcePath to outputPath. A stream copy is
// tried first; sources whose keyframes make the copy fail are re-encoded.
func (t *Tool) Cut(ctx context.Context, sourcePath string, r types.TimeRange, outputPath, thumbnailPath string) error {
	start := timecode.FFmpegSeconds(r.Start)
	length := timecode.FFmpegSeconds(r.Duration())

	err := t.ffmpeg(ctx, "cut",
		"-ss", start, "-i", sourcePath, "-t", length,
		"-c", "copy", "-avoid_negative_ts", "1", outputPath)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.GetLogger().Warn("stream copy failed, re-encoding clip", zap.String("clip", outputPath))
		err = t.ffmpeg(ctx, "cut",
			"-ss", start, "-i", sourcePath, "-t", length,
			"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", outputPath)
		if err != nil {
			return err
		}
	}

	if thumbnailPath == "" {
		return nil
	}
	return t.ffmpeg(ctx, "thumbnail",
		"-ss", start, "-i", sourcePath, "-vframes", "1", "-q:v", "2", thumbnailPath)
}

// writeAtomically renders into a temporary sibling of path and renames it
// into place on success, so an interrupted run never leaves a partial
// artifact under the final name.
func (t *Tool) writeAtomically(path string, render func(tmp string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create output directory", err)
	}
	ext := filepath.Ext(path)
	tmp := strings.TrimSuffix(path, ext) + ".part" + ext
	if err := render(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to move rendered file", err)
	}
	return nil
}

// EscapeFilterPath quotes a path for use inside an ffmpeg filter argument.
func EscapeFilterPath(path string) string {
	path = filepath.ToSlash(path)
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return "'" + r.Replace(path) + "'"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
