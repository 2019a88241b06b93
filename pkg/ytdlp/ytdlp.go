// Package ytdlp downloads media and captions with the yt-dlp binary.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/srt"
	"autocut/pkg/util"

	"go.uber.org/zap"
)

const (
	DefaultVideoFormat = "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	DefaultAudioFormat = "bestaudio"
)

type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

type Client struct {
	Path        string
	FfmpegPath  string
	Proxy       string
	CookiesPath string
	VideoFormat string
	Retry       util.RetryPolicy

	run Runner
}

func New(path string) *Client {
	if path == "" {
		path = "yt-dlp"
	}
	return &Client{
		Path:        path,
		VideoFormat: DefaultVideoFormat,
		Retry:       util.DefaultRetryPolicy,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

func (c *Client) WithRunner(r Runner) *Client {
	c.run = r
	return c
}

func (c *Client) commonArgs() []string {
	args := []string{"--no-playlist", "--encoding", "utf-8"}
	if c.Proxy != "" {
		args = append(args, "--proxy", c.Proxy)
	}
	if c.CookiesPath != "" {
		if _, err := os.Stat(c.CookiesPath); err == nil {
			args = append(args, "--cookies", c.CookiesPath)
		}
	}
	if c.FfmpegPath != "" && c.FfmpegPath != "ffmpeg" {
		args = append(args, "--ffmpeg-location", c.FfmpegPath)
	}
	return args
}

func (c *Client) exec(ctx context.Context, op, ref string, args ...string) error {
	args = append(append(c.commonArgs(), args...), ref)
	return util.Retry(ctx, "yt-dlp "+op, c.Retry, func() error {
		output, err := c.run(ctx, c.Path, args...)
		if err != nil {
			if ctx.Err() != nil {
				return util.Permanent(ctx.Err())
			}
			log.GetLogger().Warn("yt-dlp failed", zap.String("op", op), zap.String("ref", ref),
				zap.String("output", string(output)), zap.Error(err))
			return fmt.Errorf("%w: %s", err, lastLine(string(output)))
		}
		return nil
	})
}

// DownloadVideo fetches ref into outputPath. A local: ref is copied.
func (c *Client) DownloadVideo(ctx context.Context, sourceRef, outputPath string) error {
	if path, ok := util.IsLocalRef(sourceRef); ok {
		if err := util.CopyFile(path, outputPath); err != nil {
			return apperrors.Wrap(apperrors.CodeVideoDownload, "failed to copy local video", err)
		}
		return nil
	}
	format := c.VideoFormat
	if format == "" {
		format = DefaultVideoFormat
	}
	err := c.download(ctx, "video", sourceRef, outputPath,
		"-f", format, "--merge-output-format", "mp4")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeVideoDownload, "video download failed", err)
	}
	return nil
}

// DownloadAudio fetches the best audio track of ref as mp3.
func (c *Client) DownloadAudio(ctx context.Context, sourceRef, outputPath string) error {
	if path, ok := util.IsLocalRef(sourceRef); ok {
		if err := util.CopyFile(path, outputPath); err != nil {
			return apperrors.Wrap(apperrors.CodeAudioDownload, "failed to copy local audio", err)
		}
		return nil
	}
	err := c.download(ctx, "audio", sourceRef, outputPath,
		"-f", DefaultAudioFormat, "-x", "--audio-format", "mp3")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeAudioDownload, "audio download failed", err)
	}
	return nil
}

// download lets yt-dlp write "<name>.part.<ext>" and renames the result to
// outputPath once the process succeeded.
func (c *Client) download(ctx context.Context, op, ref, outputPath string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	prefix := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".part"
	cleanup := func() {
		matches, _ := filepath.Glob(prefix + ".*")
		for _, m := range matches {
			os.Remove(m)
		}
	}
	cleanup()

	args = append(args, "-o", prefix+".%(ext)s")
	if err := c.exec(ctx, op, ref, args...); err != nil {
		cleanup()
		return err
	}

	want := prefix + filepath.Ext(outputPath)
	if _, err := os.Stat(want); err != nil {
		matches, _ := filepath.Glob(prefix + ".*")
		if len(matches) == 0 {
			return fmt.Errorf("yt-dlp produced no file for %s", ref)
		}
		want = matches[0]
	}
	if err := os.Rename(want, outputPath); err != nil {
		cleanup()
		return err
	}
	cleanup()
	return nil
}

// FetchCaptions downloads manual or automatic captions and returns the first
// track found in languages order. A source without captions yields an empty
// result and no error.
func (c *Client) FetchCaptions(ctx context.Context, sourceRef string, languages []string) (types.CaptionResult, error) {
	if path, ok := util.IsLocalRef(sourceRef); ok {
		return sidecarCaptions(path, languages)
	}

	dir, err := os.MkdirTemp("", "autocut-captions-")
	if err != nil {
		return types.CaptionResult{}, apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create caption dir", err)
	}
	defer os.RemoveAll(dir)

	err = c.exec(ctx, "captions", sourceRef,
		"--skip-download", "--write-sub", "--write-auto-sub",
		"--sub-lang", strings.Join(languages, ","), "--sub-format", "vtt",
		"-o", filepath.Join(dir, "captions.%(ext)s"))
	if err != nil {
		return types.CaptionResult{}, apperrors.Adapter("caption download", err)
	}

	entries, _ := os.ReadDir(dir)
	files := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".vtt") {
			continue
		}
		lang := strings.TrimSuffix(strings.TrimPrefix(name, "captions."), ".vtt")
		files[lang] = filepath.Join(dir, name)
	}

	lang, path := pickLanguage(files, languages)
	if path == "" {
		log.GetLogger().Info("no captions available", zap.String("ref", sourceRef), zap.Strings("languages", languages))
		return types.CaptionResult{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CaptionResult{}, apperrors.Adapter("caption download", err)
	}
	cues, err := srt.ParseVTT(string(data))
	if err != nil {
		return types.CaptionResult{}, err
	}
	return types.CaptionResult{Language: lang, Entries: srt.Normalize(cues)}, nil
}

// pickLanguage matches exact codes first, then regional variants ("en" accepts "en-US").
func pickLanguage(files map[string]string, languages []string) (string, string) {
	for _, lang := range languages {
		if path, ok := files[lang]; ok {
			return lang, path
		}
		for got, path := range files {
			if strings.HasPrefix(got, lang+"-") {
				return got, path
			}
		}
	}
	return "", ""
}

// sidecarCaptions looks for "<name>.<lang>.srt" or "<name>.srt" next to a local video.
func sidecarCaptions(videoPath string, languages []string) (types.CaptionResult, error) {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	candidates := make([][2]string, 0, len(languages)+1)
	for _, lang := range languages {
		candidates = append(candidates, [2]string{lang, base + "." + lang + ".srt"})
	}
	candidates = append(candidates, [2]string{"", base + ".srt"})

	for _, cand := range candidates {
		if _, err := os.Stat(cand[1]); err != nil {
			continue
		}
		entries, err := srt.ReadFile(cand[1])
		if err != nil {
			return types.CaptionResult{}, apperrors.Adapter("caption read", err)
		}
		return types.CaptionResult{Language: cand[0], Entries: entries}, nil
	}
	return types.CaptionResult{}, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
