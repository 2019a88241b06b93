package srt

import (
	"os"
	"path/filepath"
	"testing"

	"autocut/internal/types"
	apperrors "autocut/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:06,250
Two lines
of text.

`

func TestParseSRT(t *testing.T) {
	got, err := Parse(sample)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.InDelta(t, 1.0, got[0].Start, 1e-9)
	assert.InDelta(t, 2.5, got[0].Duration, 1e-9)
	assert.Equal(t, "Hello there.", got[0].Text)
	assert.Equal(t, "Two lines\nof text.", got[1].Text)
	assert.InDelta(t, 6.25, got[1].End(), 1e-9)
}

func TestParseSRTWithoutIndicesAndCRLF(t *testing.T) {
	got, err := Parse("00:00:01.000 --> 00:00:02.000\r\nhi\r\n\r\n00:00:03.000 --> 00:00:04.000\r\nbye\r\n")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bye", got[1].Text)
}

func TestParseSRTRejectsBadTiming(t *testing.T) {
	_, err := Parse("1\n00:00:0x,000 --> 00:00:02,000\nhi\n")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeFormat))

	_, err = Parse("1\n00:00:05,000 --> 00:00:02,000\nhi\n")
	require.Error(t, err)
}

func TestFormatRoundTrip(t *testing.T) {
	entries, err := Parse(sample)
	require.NoError(t, err)

	assert.Equal(t, sample, Format(entries))
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job", "v1.srt")
	entries := []types.CaptionEntry{{Start: 0, Duration: 1.5, Text: "a"}, {Start: 2, Duration: 1, Text: "b"}}

	require.NoError(t, WriteFile(path, entries))
	assert.NoFileExists(t, path+".tmp")

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.srt"))
	assert.True(t, apperrors.Is(err, apperrors.CodeResumeState))

	require.NoError(t, os.WriteFile(path, []byte("1\nbad --> timing\nx\n"), 0o644))
	_, err = ReadFile(path)
	assert.True(t, apperrors.Is(err, apperrors.CodeResumeState))
}

func TestParseVTT(t *testing.T) {
	content := `WEBVTT
Kind: captions
Language: en

NOTE generated by a tool
spanning two lines

00:01.000 --> 00:03.000 align:start position:0%
we<00:00:01.500><c> are</c><c> live</c>

intro
00:00:03.000 --> 00:00:05.000
<b>welcome</b> back
`
	got, err := ParseVTT(content)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "we are live", got[0].Text)
	assert.InDelta(t, 1.0, got[0].Start, 1e-9)
	assert.InDelta(t, 2.0, got[0].Duration, 1e-9)
	assert.Equal(t, "welcome back", got[1].Text)
}

func TestNormalizeFoldsRollingCaptions(t *testing.T) {
	in := []types.CaptionEntry{
		{Start: 0, Duration: 2, Text: "so today we"},
		{Start: 2, Duration: 0.01, Text: "so today we"},
		{Start: 2, Duration: 2, Text: "so today we are going to"},
		{Start: 4, Duration: 2, Text: "  talk   about\ngo  "},
		{Start: 6, Duration: 1, Text: "   "},
		{Start: 7, Duration: 2, Text: "talk about go!"},
	}

	got := Normalize(in)

	require.Len(t, got, 3)
	assert.Equal(t, "so today we", got[0].Text)
	assert.InDelta(t, 2.01, got[0].Duration, 1e-9)
	assert.Equal(t, "are going to", got[1].Text)
	assert.Equal(t, "talk about go", got[2].Text)
	assert.InDelta(t, 9.0, got[2].End(), 1e-9)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a b\nc\n", PlainText([]types.CaptionEntry{{Text: "a\nb"}, {Text: "c"}}))
}
