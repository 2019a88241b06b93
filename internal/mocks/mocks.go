// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"
	"os"

	"autocut/internal/types"

	"github.com/stretchr/testify/mock"
)

// MockChatCompleter is a mock implementation of types.ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// MockDownloader is a mock implementation of types.Downloader.
// When Content is set, successful calls write it to the output path.
type MockDownloader struct {
	mock.Mock
	Content []byte
}

func (m *MockDownloader) DownloadVideo(ctx context.Context, sourceRef, outputPath string) error {
	args := m.Called(ctx, sourceRef, outputPath)
	return writeOnSuccess(args.Error(0), outputPath, m.Content)
}

func (m *MockDownloader) DownloadAudio(ctx context.Context, sourceRef, outputPath string) error {
	args := m.Called(ctx, sourceRef, outputPath)
	return writeOnSuccess(args.Error(0), outputPath, m.Content)
}

// MockMediaProber is a mock implementation of types.MediaProber
type MockMediaProber struct {
	mock.Mock
}

func (m *MockMediaProber) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(types.MediaInfo), args.Error(1)
}

// MockMuxer is a mock implementation of types.Muxer
type MockMuxer struct {
	mock.Mock
	Content []byte
}

func (m *MockMuxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := m.Called(ctx, videoPath, audioPath, outputPath)
	return writeOnSuccess(args.Error(0), outputPath, m.Content)
}

// MockCaptionSource is a mock implementation of types.CaptionSource
type MockCaptionSource struct {
	mock.Mock
}

func (m *MockCaptionSource) FetchCaptions(ctx context.Context, sourceRef string, languages []string) (types.CaptionResult, error) {
	args := m.Called(ctx, sourceRef, languages)
	return args.Get(0).(types.CaptionResult), args.Error(1)
}

// MockTranslator is a mock implementation of types.Translator
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	args := m.Called(ctx, texts, targetLanguage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockSubtitleBurner is a mock implementation of types.SubtitleBurner
type MockSubtitleBurner struct {
	mock.Mock
	Content []byte
}

func (m *MockSubtitleBurner) BurnSubtitles(ctx context.Context, videoPath string, entries []types.CaptionEntry, outputPath string) error {
	args := m.Called(ctx, videoPath, entries, outputPath)
	return writeOnSuccess(args.Error(0), outputPath, m.Content)
}

// MockHighlightSelector is a mock implementation of types.HighlightSelector
type MockHighlightSelector struct {
	mock.Mock
}

func (m *MockHighlightSelector) SelectHighlights(ctx context.Context, captionText string) (string, error) {
	args := m.Called(ctx, captionText)
	return args.String(0), args.Error(1)
}

// MockSceneDetector is a mock implementation of types.SceneDetector
type MockSceneDetector struct {
	mock.Mock
}

func (m *MockSceneDetector) DetectScenes(ctx context.Context, mediaPath string, threshold float64) ([]float64, error) {
	args := m.Called(ctx, mediaPath, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockClipCutter is a mock implementation of types.ClipCutter.
// Successful calls write Content to both output paths.
type MockClipCutter struct {
	mock.Mock
	Content []byte
}

func (m *MockClipCutter) Cut(ctx context.Context, sourcePath string, r types.TimeRange, outputPath, thumbnailPath string) error {
	args := m.Called(ctx, sourcePath, r, outputPath, thumbnailPath)
	if err := writeOnSuccess(args.Error(0), outputPath, m.Content); err != nil {
		return err
	}
	return writeOnSuccess(nil, thumbnailPath, m.Content)
}

// MockUploader is a mock implementation of types.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	args := m.Called(ctx, localPath, objectKey)
	return args.String(0), args.Error(1)
}

func writeOnSuccess(err error, path string, content []byte) error {
	if err != nil || len(content) == 0 {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
