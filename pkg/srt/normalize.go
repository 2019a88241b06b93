package srt

import (
	"strings"

	"autocut/internal/types"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// duplicateRatio is the similarity above which two consecutive cues are
// treated as one line that the platform re-emitted.
const duplicateRatio = 0.9

// Normalize cleans auto-generated captions: whitespace is collapsed, empty
// cues dropped, and the rolling repeats of auto-captions (each cue restating
// the previous one before adding words) are folded into their predecessor.
func Normalize(entries []types.CaptionEntry) []types.CaptionEntry {
	out := make([]types.CaptionEntry, 0, len(entries))
	for _, e := range entries {
		e.Text = strings.TrimSpace(spaceRe.ReplaceAllString(e.Text, " "))
		if e.Text == "" || e.Duration < 0 {
			continue
		}
		if len(out) == 0 {
			out = append(out, e)
			continue
		}

		prev := &out[len(out)-1]
		if rest, ok := strings.CutPrefix(e.Text, prev.Text); ok && (rest == "" || rest[0] == ' ') {
			e.Text = strings.TrimSpace(rest)
		}
		if e.Text == "" || similar(prev.Text, e.Text) {
			if end := e.End(); end > prev.End() {
				prev.Duration = end - prev.Start
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

func similar(a, b string) bool {
	if a == b {
		return true
	}
	ratio := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return ratio >= duplicateRatio
}
