package types

import "context"

type ChatCompleter interface {
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Downloader fetches the primary video and, when needed, a separate audio track.
type Downloader interface {
	DownloadVideo(ctx context.Context, sourceRef, outputPath string) error
	DownloadAudio(ctx context.Context, sourceRef, outputPath string) error
}

type MediaProber interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
}

type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// CaptionSource returns the first available track in language preference
// order, or an empty CaptionResult when the source has none.
type CaptionSource interface {
	FetchCaptions(ctx context.Context, sourceRef string, languages []string) (CaptionResult, error)
}

// Translator returns len(texts) translations in input order.
type Translator interface {
	Translate(ctx context.Context, texts []string, targetLanguage string) ([]string, error)
}

type SubtitleBurner interface {
	BurnSubtitles(ctx context.Context, videoPath string, entries []CaptionEntry, outputPath string) error
}

// HighlightSelector turns caption text into freeform text holding [start-end] tokens.
type HighlightSelector interface {
	SelectHighlights(ctx context.Context, captionText string) (string, error)
}

type SceneDetector interface {
	DetectScenes(ctx context.Context, mediaPath string, threshold float64) ([]float64, error)
}

// ClipCutter writes [r.Start, r.End) of sourcePath to outputPath and a frame
// sampled at r.Start to thumbnailPath.
type ClipCutter interface {
	Cut(ctx context.Context, sourcePath string, r TimeRange, outputPath, thumbnailPath string) error
}

type Uploader interface {
	Upload(ctx context.Context, localPath, objectKey string) (string, error)
}
