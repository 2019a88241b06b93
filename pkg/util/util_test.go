package util

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42": "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                    "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":      "dQw4w9WgXcQ",
		"dQw4w9WgXcQ":                                     "dQw4w9WgXcQ",
		"https://www.bilibili.com/video/BV1GJ411x7h7/":    "BV1GJ411x7h7",
	}
	for ref, want := range cases {
		assert.Equal(t, want, ExtractVideoID(ref), ref)
	}

	other := ExtractVideoID("https://example.com/talk.mp4")
	assert.Len(t, other, 12)
	assert.Equal(t, other, ExtractVideoID("https://example.com/talk.mp4"))
	assert.NotEqual(t, other, ExtractVideoID("https://example.com/other.mp4"))

	local := ExtractVideoID("local:/data/My Talk (final).mp4")
	assert.Regexp(t, `^My_Talk_final_[0-9a-f]{12}$`, local)
}

func TestIsLocalRef(t *testing.T) {
	path, ok := IsLocalRef("local:/tmp/a.mp4")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/a.mp4", path)

	_, ok = IsLocalRef("https://youtu.be/x")
	assert.False(t, ok)
}

func TestRetry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	calls := 0
	err := Retry(context.Background(), "flaky", policy, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), "broken", policy, func() error {
		calls++
		return errors.New("still broken")
	})
	assert.EqualError(t, err, "still broken")
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), "fatal", policy, func() error {
		calls++
		return Permanent(errors.New("bad request"))
	})
	assert.EqualError(t, err, "bad request")
	assert.Equal(t, 1, calls)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "1. [a-b]", StripCodeFence("here:\n```text\n1. [a-b]\n```"))
	assert.Equal(t, "plain", StripCodeFence("plain"))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))

	dst := filepath.Join(dir, "job", "v1.mp4")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))
	assert.NoFileExists(t, dst+".part")

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
}
