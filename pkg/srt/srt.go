// Package srt reads and writes caption files.
package srt

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"autocut/internal/types"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/timecode"
)

const cueArrow = "-->"

// Format renders entries as an SRT document with 1-based indices.
func Format(entries []types.CaptionEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			timecode.FormatSeconds(e.Start),
			timecode.FormatSeconds(e.End()),
			strings.TrimSpace(e.Text))
	}
	return sb.String()
}

// WriteFile writes entries to path through a temporary file, so a crash never
// leaves a truncated caption file that looks complete.
func WriteFile(path string, entries []types.CaptionEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create caption directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(Format(entries)), 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write caption file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write caption file", err)
	}
	return nil
}

// ReadFile parses an SRT file. An unreadable or unparsable file is a
// ResumeStateError: the caller only reads files the tracker reported present.
func ReadFile(path string) ([]types.CaptionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ResumeState(path, err)
	}
	entries, err := Parse(string(data))
	if err != nil {
		return nil, apperrors.ResumeState(path, err)
	}
	return entries, nil
}

// Parse reads SRT content. Index lines are optional; cue text may span lines.
func Parse(content string) ([]types.CaptionEntry, error) {
	return parseCues(content, false)
}

var (
	vttTagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe    = regexp.MustCompile(`\s+`)
	vttNoteRe  = regexp.MustCompile(`^(NOTE|STYLE|REGION)\b`)
	vttStampRe = regexp.MustCompile(`^(\d+:)?\d{2}:\d{2}\.\d{3}$`)
)

// ParseVTT reads WebVTT content as written by yt-dlp, stripping cue settings
// and inline timing tags.
func ParseVTT(content string) ([]types.CaptionEntry, error) {
	return parseCues(content, true)
}

func parseCues(content string, vtt bool) ([]types.CaptionEntry, error) {
	var (
		entries []types.CaptionEntry
		cur     *types.CaptionEntry
		text    []string
		lineNo  int
		skip    bool
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(strings.Join(text, "\n"))
			if cur.Text != "" {
				entries = append(entries, *cur)
			}
		}
		cur, text = nil, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(strings.ReplaceAll(content, "\r\n", "\n")))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		if line == "" {
			flush()
			skip = false
			continue
		}
		if skip {
			continue
		}
		if vtt && cur == nil && (line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT ") || vttNoteRe.MatchString(line) ||
			strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:")) {
			skip = vttNoteRe.MatchString(line)
			continue
		}

		if strings.Contains(line, cueArrow) {
			flush()
			start, end, err := parseCueTiming(line, vtt)
			if err != nil {
				return nil, apperrors.WrapWithDetail(apperrors.CodeFormat, "invalid cue timing",
					fmt.Sprintf("line %d: %s", lineNo, line), err)
			}
			cur = &types.CaptionEntry{Start: start, Duration: end - start}
			continue
		}
		if cur == nil {
			// index line or cue identifier
			continue
		}
		if vtt {
			line = strings.TrimSpace(vttTagRe.ReplaceAllString(line, ""))
			if line == "" {
				continue
			}
		}
		text = append(text, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFormat, "failed to scan captions", err)
	}
	flush()
	return entries, nil
}

func parseCueTiming(line string, vtt bool) (float64, float64, error) {
	left, right, _ := strings.Cut(line, cueArrow)
	startText := strings.TrimSpace(left)
	endFields := strings.Fields(right)
	if len(endFields) == 0 {
		return 0, 0, apperrors.FormatError("cue has no end time", line)
	}
	endText := endFields[0]
	if vtt {
		startText, endText = padVTTStamp(startText), padVTTStamp(endText)
	}

	start, err := timecode.ParseSeconds(startText)
	if err != nil {
		return 0, 0, err
	}
	end, err := timecode.ParseSeconds(endText)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, apperrors.FormatError("cue ends before it starts", line)
	}
	return start, end, nil
}

// padVTTStamp turns the short "MM:SS.mmm" form into "00:MM:SS.mmm".
func padVTTStamp(s string) string {
	if vttStampRe.MatchString(s) && strings.Count(s, ":") == 1 {
		return "00:" + s
	}
	return s
}

// PlainText joins caption texts, one entry per line.
func PlainText(entries []types.CaptionEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(spaceRe.ReplaceAllString(e.Text, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}
