package tubedown

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPickVideoAndAudio(t *testing.T) {
	formats := []Format{
		{URL: "v720", FormatNote: "720p", Filesize: ptr[int64](500)},
		{URL: "v1080", FormatNote: "1080p", Filesize: ptr[int64](900)},
		{URL: "v4k", FormatNote: "2160p", Filesize: ptr[int64](5000)},
		{URL: "vnosize", FormatNote: "1080p"},
		{URL: "a-medium", FormatNote: "medium", Filesize: ptr[int64](80), Asr: ptr(48000)},
		{URL: "a-low", FormatNote: "low", Filesize: ptr[int64](30), Asr: ptr(44100)},
		{URL: "combined", FormatNote: "720p", Filesize: ptr[int64](9999), Asr: ptr(44100)},
	}

	url, ok := PickVideo(formats)
	assert.True(t, ok)
	assert.Equal(t, "v1080", url)

	url, ok = PickAudio(formats)
	assert.True(t, ok)
	assert.Equal(t, "a-medium", url)

	_, ok = PickVideo(nil)
	assert.False(t, ok)
}

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/api/youtube", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["url"] == "https://youtu.be/missing0000" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"formats": []map[string]any{
					{"url": srv.URL + "/files/video", "format_note": "720p", "filesize": 10},
					{"url": srv.URL + "/files/audio", "format_note": "medium", "filesize": 5, "asr": 44100},
				},
			},
		})
	})
	mux.HandleFunc("/files/video", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("video-bytes"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadVideo(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/api/youtube", "")
	out := filepath.Join(t.TempDir(), "job", "v1.mp4")

	require.NoError(t, c.DownloadVideo(context.Background(), "https://youtu.be/dQw4w9WgXcQ", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.NoFileExists(t, out+".part")
}

func TestDownloadFailures(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/api/youtube", "")
	c.Retry = util.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	dir := t.TempDir()

	err := c.DownloadVideo(context.Background(), "https://youtu.be/missing0000", filepath.Join(dir, "v1.mp4"))
	assert.True(t, apperrors.Is(err, apperrors.CodeVideoDownload))

	// the audio file URL is not served
	out := filepath.Join(dir, "v1.mp3")
	err = c.DownloadAudio(context.Background(), "https://youtu.be/dQw4w9WgXcQ", out)
	assert.True(t, apperrors.Is(err, apperrors.CodeAudioDownload))
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, out+".part")
}
