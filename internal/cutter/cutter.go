// Package cutter validates highlight ranges and cuts each one into its own
// clip plus a thumbnail.
package cutter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultExt   = "mp4"
	thumbnailExt = "jpg"
	clipPrefix   = "clip_"

	// EndSlack absorbs millisecond rounding of plan time codes and the few
	// milliseconds a re-encode can lose at the tail.
	EndSlack = 0.05
)

// Planner cuts ranges of one source into OutputDir. With Workers > 1 clips
// are cut concurrently; results are still reported in input order.
type Planner struct {
	Media     types.ClipCutter
	OutputDir string
	Ext       string
	Workers   int
}

// ClipName returns the file name for the range at index.
func ClipName(index int, r types.TimeRange, ext string) string {
	if ext == "" {
		ext = defaultExt
	}
	return fmt.Sprintf("%s%03d_%.3f-%.3f.%s", clipPrefix, index, r.Start, r.End, strings.TrimPrefix(ext, "."))
}

// Reset empties OutputDir before a full re-cut.
func (p *Planner) Reset() error {
	if err := os.RemoveAll(p.OutputDir); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to clear split directory", err)
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create split directory", err)
	}
	return nil
}

// PlanAndCut returns exactly one result per range, results[i] describing
// ranges[i]. A bad range or a failed cut never stops the other ranges.
func (p *Planner) PlanAndCut(ctx context.Context, source types.MediaHandle, ranges []types.TimeRange) []types.CutResult {
	results := make([]types.CutResult, len(ranges))
	if len(ranges) == 0 {
		return results
	}

	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		cause := apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create split directory", err)
		for i, r := range ranges {
			results[i] = failed(i, r, types.CutFailureAdapter, cause)
		}
		return results
	}

	if p.Workers <= 1 {
		for i, r := range ranges {
			results[i] = p.cutOne(ctx, source, i, r)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.Workers)
		for i, r := range ranges {
			g.Go(func() error {
				results[i] = p.cutOne(ctx, source, i, r)
				return nil
			})
		}
		_ = g.Wait()
	}

	failures := lo.Filter(results, func(r types.CutResult, _ int) bool { return !r.OK() })
	log.GetLogger().Info("cut finished",
		zap.String("source", source.Path),
		zap.Int("requested", len(ranges)),
		zap.Int("failed", len(failures)))
	return results
}

func (p *Planner) cutOne(ctx context.Context, source types.MediaHandle, index int, r types.TimeRange) types.CutResult {
	r = r.ClampEnd(source.Duration, EndSlack)
	if err := r.Validate(source.Duration); err != nil {
		log.GetLogger().Warn("invalid cut range",
			zap.Int("index", index),
			zap.String("range", r.String()),
			zap.Error(err))
		return failed(index, r, types.CutFailureInvalidRange, err)
	}
	if err := ctx.Err(); err != nil {
		return failed(index, r, types.CutFailureAdapter, apperrors.Adapter("clip cutter", err))
	}

	clipPath := filepath.Join(p.OutputDir, ClipName(index, r, p.Ext))
	thumbPath := strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + "." + thumbnailExt

	if err := p.Media.Cut(ctx, source.Path, r, clipPath, thumbPath); err != nil {
		_ = os.Remove(clipPath)
		_ = os.Remove(thumbPath)
		log.GetLogger().Error("cut failed",
			zap.Int("index", index),
			zap.String("range", r.String()),
			zap.Error(err))
		return failed(index, r, types.CutFailureAdapter, apperrors.Adapter("clip cutter", err))
	}

	return types.CutResult{
		Index:         index,
		Range:         r,
		ClipPath:      clipPath,
		ThumbnailPath: thumbPath,
	}
}

func failed(index int, r types.TimeRange, kind types.CutFailure, err error) types.CutResult {
	return types.CutResult{
		Index:   index,
		Range:   r,
		Failure: kind,
		Reason:  err.Error(),
		Err:     err,
	}
}

// Succeeded returns the results that produced a clip.
func Succeeded(results []types.CutResult) []types.CutResult {
	return lo.Filter(results, func(r types.CutResult, _ int) bool { return r.OK() })
}
