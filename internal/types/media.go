package types

import (
	"fmt"
	"math"

	apperrors "autocut/pkg/errors"
	"autocut/pkg/timecode"
)

// TimeRange is a [Start, End) span of the source timeline in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s-%s]", timecode.FormatSeconds(r.Start), timecode.FormatSeconds(r.End))
}

// Validate checks the range against a source of the given duration.
func (r TimeRange) Validate(duration float64) error {
	switch {
	case math.IsNaN(r.Start) || math.IsInf(r.Start, 0) || math.IsNaN(r.End) || math.IsInf(r.End, 0):
		return apperrors.InvalidInput("range is not finite", r.String())
	case r.Start >= r.End:
		return apperrors.InvalidInput("range start is not before end", r.String())
	case r.Start < 0:
		return apperrors.InvalidInput("range starts before 0", r.String())
	case r.End > duration:
		return apperrors.InvalidInput("range ends after source", fmt.Sprintf("%s > %.3fs", r.String(), duration))
	}
	return nil
}

// ClampEnd pulls an end that overshoots duration by at most slack back to
// duration. Larger overshoots are left for Validate to reject.
func (r TimeRange) ClampEnd(duration, slack float64) TimeRange {
	if r.End > duration && r.End-duration <= slack {
		r.End = duration
	}
	return r
}

// MediaHandle is a media file whose duration is already known.
type MediaHandle struct {
	Path     string
	Duration float64
}

// MediaInfo is what the prober reports about a media file.
type MediaInfo struct {
	Duration float64 `json:"duration"`
	HasAudio bool    `json:"has_audio"`
	HasVideo bool    `json:"has_video"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// CaptionEntry is one timed caption line.
type CaptionEntry struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

func (e CaptionEntry) End() float64 {
	return e.Start + e.Duration
}

// CaptionResult is a caption track for one language. The zero value is the
// "no captions" answer, which callers must tell apart from an error.
type CaptionResult struct {
	Language string
	Entries  []CaptionEntry
}

func (r CaptionResult) Empty() bool {
	return len(r.Entries) == 0
}

type CutFailure string

const (
	CutFailureNone         CutFailure = ""
	CutFailureInvalidRange CutFailure = "invalid_range"
	CutFailureAdapter      CutFailure = "adapter"
)

// CutResult reports the outcome for the range at Index of the requested list.
type CutResult struct {
	Index         int        `json:"index"`
	Range         TimeRange  `json:"range"`
	ClipPath      string     `json:"clip_path,omitempty"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	Failure       CutFailure `json:"failure,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Err           error      `json:"-"`
}

func (r CutResult) OK() bool {
	return r.Failure == CutFailureNone
}
