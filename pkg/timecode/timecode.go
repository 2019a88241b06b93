// Package timecode converts between subtitle timecodes (HH:MM:SS,mmm) and seconds.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "autocut/pkg/errors"
)

// Parse converts "HH:MM:SS,mmm" or "HH:MM:SS.mmm" into seconds rounded to two decimals.
func Parse(text string) (float64, error) {
	h, m, sec, err := split(text)
	if err != nil {
		return 0, err
	}
	total := float64(h*3600+m*60) + sec
	return math.Round(total*100) / 100, nil
}

// ParseMillis is Parse without the two-decimal rounding.
func ParseMillis(text string) (int64, error) {
	h, m, sec, err := split(text)
	if err != nil {
		return 0, err
	}
	return (h*3600+m*60)*1000 + int64(math.Round(sec*1000)), nil
}

// ParseSeconds returns ParseMillis as fractional seconds.
func ParseSeconds(text string) (float64, error) {
	ms, err := ParseMillis(text)
	if err != nil {
		return 0, err
	}
	return Seconds(ms), nil
}

// Format renders a millisecond count as zero-padded HH:MM:SS,mmm.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func FormatSeconds(sec float64) string {
	return Format(Millis(sec))
}

// FFmpegSeconds renders sec for ffmpeg's -ss/-t options.
func FFmpegSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func Millis(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

func Seconds(ms int64) float64 {
	return float64(ms) / 1000
}

func split(text string) (int64, int64, float64, error) {
	raw := strings.TrimSpace(text)
	fields := strings.Split(raw, ":")
	if len(fields) != 3 {
		return 0, 0, 0, apperrors.FormatError("invalid timecode", fmt.Sprintf("%q: want HH:MM:SS,mmm", text))
	}

	h, err := parseInt(fields[0])
	if err != nil {
		return 0, 0, 0, apperrors.FormatError("invalid timecode hours", fmt.Sprintf("%q", text))
	}
	m, err := parseInt(fields[1])
	if err != nil {
		return 0, 0, 0, apperrors.FormatError("invalid timecode minutes", fmt.Sprintf("%q", text))
	}
	sec, err := parseSecondsField(fields[2])
	if err != nil {
		return 0, 0, 0, apperrors.FormatError("invalid timecode seconds", fmt.Sprintf("%q", text))
	}
	return h, m, sec, nil
}

func parseInt(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" || !isDigits(field) {
		return 0, fmt.Errorf("not an unsigned integer: %q", field)
	}
	return strconv.ParseInt(field, 10, 64)
}

// parseSecondsField accepts "SS", "SS,mmm" or "SS.mmm" and nothing else;
// strconv alone would let through "NaN", "1e3" and hex floats.
func parseSecondsField(field string) (float64, error) {
	field = strings.Replace(strings.TrimSpace(field), ",", ".", 1)
	whole, frac, hasFrac := strings.Cut(field, ".")
	if whole == "" || !isDigits(whole) || (hasFrac && (frac == "" || !isDigits(frac))) {
		return 0, fmt.Errorf("not a seconds value: %q", field)
	}
	return strconv.ParseFloat(field, 64)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
