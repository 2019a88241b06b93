// Package highlight turns highlight plans into time ranges and back.
//
// A plan is freeform text. Every line holding both '[' and ']' is read as a
// "[start-end]" token; other lines are commentary and are ignored.
package highlight

import (
	"fmt"
	"strings"

	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/timecode"

	"go.uber.org/zap"
)

// Extractor parses plans. In lenient mode (the default) a malformed bracket
// line is logged and skipped. In strict mode extraction stops there and the
// ranges read so far are returned together with a FormatError naming the line.
type Extractor struct {
	Strict bool
}

// Extract parses text leniently.
func Extract(text string) []types.TimeRange {
	ranges, _ := Extractor{}.Extract(text)
	return ranges
}

func (e Extractor) Extract(text string) ([]types.TimeRange, error) {
	var ranges []types.TimeRange
	for i, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "[") || !strings.Contains(line, "]") {
			continue
		}
		r, err := parseBracketLine(line)
		if err == nil {
			ranges = append(ranges, r)
			continue
		}

		lineNo := i + 1
		if e.Strict {
			return ranges, apperrors.WrapWithDetail(apperrors.CodeFormat, "malformed highlight range",
				fmt.Sprintf("line %d: %s", lineNo, strings.TrimSpace(line)), err)
		}
		log.GetLogger().Warn("skipping malformed highlight range",
			zap.Int("line", lineNo),
			zap.String("text", strings.TrimSpace(line)),
			zap.Error(err))
	}
	return ranges, nil
}

func parseBracketLine(line string) (types.TimeRange, error) {
	open := strings.Index(line, "[")
	closing := strings.Index(line[open:], "]")
	if closing < 0 {
		return types.TimeRange{}, apperrors.FormatError("']' before '['", line)
	}
	token := line[open+1 : open+closing]

	startText, endText, found := strings.Cut(token, "-")
	if !found {
		return types.TimeRange{}, apperrors.FormatError("range has no '-'", token)
	}
	start, err := timecode.ParseMillis(startText)
	if err != nil {
		return types.TimeRange{}, err
	}
	end, err := timecode.ParseMillis(endText)
	if err != nil {
		return types.TimeRange{}, err
	}
	return types.TimeRange{Start: timecode.Seconds(start), End: timecode.Seconds(end)}, nil
}

// Format renders ranges as a numbered plan that Extract reads back unchanged.
// labels may be shorter than ranges.
func Format(ranges []types.TimeRange, labels []string) string {
	var sb strings.Builder
	for i, r := range ranges {
		fmt.Fprintf(&sb, "%d. %s", i+1, r.String())
		if i < len(labels) && labels[i] != "" {
			sb.WriteString(" ")
			sb.WriteString(labels[i])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
