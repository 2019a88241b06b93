// Package pipeline runs a job through its stages in a fixed order, skipping
// every stage whose artifact is already on disk unless reprocessing is forced.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autocut/internal/appcore"
	"autocut/internal/cutter"
	"autocut/internal/highlight"
	"autocut/internal/scene"
	"autocut/internal/stagestate"
	"autocut/internal/translate"
	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/srt"
	"autocut/pkg/util"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type HighlightMode string

const (
	HighlightLLM   HighlightMode = "llm"
	HighlightScene HighlightMode = "scene"
)

const (
	defaultSceneThreshold   = 0.3
	defaultMinSceneDuration = 10.0
)

var defaultCaptionLanguages = []string{"en", "zh-Hans", "zh-Hant", "ja"}

// Deps are the collaborators of a run. Selector is only needed in llm mode
// and Scenes only in scene mode.
type Deps struct {
	Downloader types.Downloader
	Prober     types.MediaProber
	Muxer      types.Muxer
	Captions   types.CaptionSource
	Translator types.Translator
	Burner     types.SubtitleBurner
	Selector   types.HighlightSelector
	Scenes     types.SceneDetector
	Cutter     types.ClipCutter
}

type Options struct {
	OutputBaseDir      string
	// JobID overrides the id derived from the source ref.
	JobID              string
	ForceReprocess     bool
	TargetLanguage     string
	CaptionLanguages   []string
	HighlightMode      HighlightMode
	SceneThreshold     float64
	MinSceneDuration   float64
	StrictRanges       bool
	TranslateBatchSize int
	CutWorkers         int
	ClipExt            string
}

// Result describes a finished run.
type Result struct {
	JobID   string            `json:"job_id"`
	JobDir  string            `json:"job_dir"`
	Ranges  []types.TimeRange `json:"ranges"`
	Cuts    []types.CutResult `json:"cuts"`
	Ran     []types.Stage     `json:"ran"`
	Skipped []types.Stage     `json:"skipped"`
	Stages  map[string]bool   `json:"stages"`
	Elapsed time.Duration     `json:"elapsed"`
}

type Orchestrator struct {
	deps     Deps
	opts     Options
	observer Observer
}

func New(deps Deps, opts Options, observers ...Observer) (*Orchestrator, error) {
	if opts.OutputBaseDir == "" {
		return nil, apperrors.InvalidInput("output base dir is required", "")
	}
	if opts.TargetLanguage == "" {
		return nil, apperrors.InvalidInput("target language is required", "")
	}
	if opts.HighlightMode == "" {
		opts.HighlightMode = HighlightLLM
	}
	if len(opts.CaptionLanguages) == 0 {
		opts.CaptionLanguages = defaultCaptionLanguages
	}
	if opts.SceneThreshold <= 0 {
		opts.SceneThreshold = defaultSceneThreshold
	}
	if opts.MinSceneDuration <= 0 {
		opts.MinSceneDuration = defaultMinSceneDuration
	}

	missing := make([]string, 0)
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("downloader", deps.Downloader != nil)
	check("prober", deps.Prober != nil)
	check("muxer", deps.Muxer != nil)
	check("captions", deps.Captions != nil)
	check("translator", deps.Translator != nil)
	check("burner", deps.Burner != nil)
	check("cutter", deps.Cutter != nil)
	switch opts.HighlightMode {
	case HighlightLLM:
		check("selector", deps.Selector != nil)
	case HighlightScene:
		check("scenes", deps.Scenes != nil)
	default:
		return nil, apperrors.InvalidInput("unknown highlight mode", string(opts.HighlightMode))
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing collaborators", strings.Join(missing, ", "))
	}

	return &Orchestrator{deps: deps, opts: opts, observer: MultiObserver(observers)}, nil
}

func (o *Orchestrator) Options() Options {
	return o.opts
}

// JobDir returns the directory a source ref is processed in.
func (o *Orchestrator) JobDir(sourceRef string) string {
	return filepath.Join(o.opts.OutputBaseDir, o.jobID(sourceRef))
}

func (o *Orchestrator) jobID(sourceRef string) string {
	if o.opts.JobID != "" {
		return util.SanitizePathName(o.opts.JobID)
	}
	return util.ExtractVideoID(sourceRef)
}

// Run processes sourceRef. The first stage failure aborts the run and is
// returned as a CodeStageFailed AppError naming the job and stage; the
// artifacts of completed stages stay in the job directory.
func (o *Orchestrator) Run(ctx context.Context, sourceRef string) (*Result, error) {
	started := time.Now()
	r := &run{
		Orchestrator: o,
		sourceRef:    strings.TrimSpace(sourceRef),
		jobID:        o.jobID(sourceRef),
		result:       &Result{},
	}
	r.layout = types.NewJobLayout(filepath.Join(o.opts.OutputBaseDir, r.jobID), o.opts.TargetLanguage)
	r.tracker = stagestate.ForLayout(r.layout)
	r.logger = log.ForJob(r.jobID)
	r.result.JobID = r.jobID
	r.result.JobDir = r.layout.Dir

	steps := []struct {
		stage types.Stage
		fn    func(context.Context) error
	}{
		{types.StageResolve, r.resolve},
		{types.StageDownload, r.download},
		{types.StageMux, r.mux},
		{types.StageCaption, r.caption},
		{types.StageTranslate, r.translate},
		{types.StageBurn, r.burn},
		{types.StageHighlight, r.highlight},
		{types.StageCut, r.cut},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return r.result, r.fail(step.stage, err)
		}
		if err := step.fn(ctx); err != nil {
			return r.result, r.fail(step.stage, err)
		}
	}

	r.result.Stages = r.tracker.Snapshot().Map()
	r.result.Elapsed = time.Since(started)
	r.notify(appcore.EventJobFinished, "", fmt.Sprintf("%d clips", len(cutter.Succeeded(r.result.Cuts))), nil)
	r.logger.Info("job finished",
		zap.Strings("ran", stageNames(r.result.Ran)),
		zap.Strings("skipped", stageNames(r.result.Skipped)),
		zap.Int("ranges", len(r.result.Ranges)),
		zap.Duration("elapsed", r.result.Elapsed))
	return r.result, nil
}

// run holds the state of one invocation.
type run struct {
	*Orchestrator
	sourceRef string
	jobID     string
	layout    types.JobLayout
	tracker   *stagestate.Tracker
	logger    *zap.Logger
	result    *Result
}

func (r *run) notify(kind appcore.EventKind, stage types.Stage, message string, err error) {
	if r.observer != nil {
		r.observer.OnStage(newEvent(r.jobID, kind, stage, message, err))
	}
}

func (r *run) fail(stage types.Stage, err error) error {
	r.logger.Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
	r.notify(appcore.EventStageFailed, stage, "", err)
	return apperrors.StageFailed(r.jobID, string(stage), err)
}

// needs applies the stage rule to the artifact of stage.
func (r *run) needs(stage types.Stage) bool {
	return r.opts.ForceReprocess || !r.tracker.Exists(stage)
}

func (r *run) started(stage types.Stage) time.Time {
	r.logger.Info("stage started", zap.String("stage", string(stage)))
	r.notify(appcore.EventStageStarted, stage, "", nil)
	return time.Now()
}

func (r *run) finished(stage types.Stage, since time.Time, message string) {
	r.result.Ran = append(r.result.Ran, stage)
	r.logger.Info("stage finished", zap.String("stage", string(stage)),
		zap.Duration("took", time.Since(since)), zap.String("message", message))
	r.notify(appcore.EventStageFinished, stage, message, nil)
}

func (r *run) skipped(stage types.Stage, reason string) {
	r.result.Skipped = append(r.result.Skipped, stage)
	r.logger.Info("stage skipped", zap.String("stage", string(stage)), zap.String("reason", reason))
	r.notify(appcore.EventStageSkipped, stage, reason, nil)
}

func (r *run) resolve(context.Context) error {
	t := r.started(types.StageResolve)
	if r.sourceRef == "" {
		return apperrors.InvalidInput("source ref is empty", "")
	}
	if err := os.MkdirAll(r.layout.Dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create job directory", err)
	}
	r.finished(types.StageResolve, t, r.layout.Dir)
	return nil
}

func (r *run) download(ctx context.Context) error {
	if !r.needs(types.StageDownload) {
		r.skipped(types.StageDownload, "video present")
		return nil
	}
	t := r.started(types.StageDownload)
	if err := r.deps.Downloader.DownloadVideo(ctx, r.sourceRef, r.layout.Video); err != nil {
		return err
	}
	if !stagestate.IsComplete(r.layout.Video) {
		return apperrors.Adapter("video download", fmt.Errorf("no data written to %s", r.layout.Video))
	}
	r.finished(types.StageDownload, t, "")
	return nil
}

// mux adds a separate audio track when the video has none. The branch is
// skipped whenever the mixed file exists, forced or not.
func (r *run) mux(ctx context.Context) error {
	if r.tracker.Exists(types.StageMux) {
		r.skipped(types.StageMux, "mixed media present")
		return nil
	}
	t := r.started(types.StageMux)
	info, err := r.deps.Prober.Probe(ctx, r.layout.Video)
	if err != nil {
		return err
	}
	if info.HasAudio {
		r.finished(types.StageMux, t, "video carries audio")
		return nil
	}

	if r.needs(types.ArtifactAudio) {
		if err := r.deps.Downloader.DownloadAudio(ctx, r.sourceRef, r.layout.Audio); err != nil {
			return err
		}
	} else {
		r.logger.Info("audio present, reusing", zap.String("path", r.layout.Audio))
	}
	if err := r.deps.Muxer.Mux(ctx, r.layout.Video, r.layout.Audio, r.layout.Mixed); err != nil {
		return err
	}
	r.finished(types.StageMux, t, "muxed")
	return nil
}

func (r *run) caption(ctx context.Context) error {
	if !r.needs(types.StageCaption) {
		r.skipped(types.StageCaption, "captions present")
		return nil
	}
	t := r.started(types.StageCaption)
	res, err := r.deps.Captions.FetchCaptions(ctx, r.sourceRef, r.opts.CaptionLanguages)
	if err != nil {
		return err
	}
	if res.Empty() {
		return apperrors.WrapWithDetail(apperrors.CodeNoCaptions, apperrors.ErrNoCaptions.Message,
			strings.Join(r.opts.CaptionLanguages, ","), nil)
	}
	if err := srt.WriteFile(r.layout.Captions, res.Entries); err != nil {
		return err
	}
	r.finished(types.StageCaption, t, fmt.Sprintf("%d entries (%s)", len(res.Entries), res.Language))
	return nil
}

func (r *run) translate(ctx context.Context) error {
	if !r.needs(types.StageTranslate) {
		r.skipped(types.StageTranslate, "translation present")
		return nil
	}
	t := r.started(types.StageTranslate)
	entries, err := srt.ReadFile(r.layout.Captions)
	if err != nil {
		return err
	}
	batcher := &translate.Batcher{Translator: r.deps.Translator, BatchSize: r.opts.TranslateBatchSize}
	translated := batcher.TranslateEntries(ctx, entries, r.opts.TargetLanguage)
	if err := srt.WriteFile(r.layout.Translated, translated); err != nil {
		return err
	}
	r.finished(types.StageTranslate, t, r.opts.TargetLanguage)
	return nil
}

// mediaPath is the mixed file when present, else the downloaded video.
func (r *run) mediaPath() string {
	if stagestate.IsComplete(r.layout.Mixed) {
		return r.layout.Mixed
	}
	return r.layout.Video
}

func (r *run) burn(ctx context.Context) error {
	if !r.needs(types.StageBurn) {
		r.skipped(types.StageBurn, "captioned media present")
		return nil
	}
	t := r.started(types.StageBurn)
	entries, err := srt.ReadFile(r.layout.Translated)
	if err != nil {
		return err
	}
	if err := r.deps.Burner.BurnSubtitles(ctx, r.mediaPath(), entries, r.layout.Captioned); err != nil {
		return err
	}
	r.finished(types.StageBurn, t, "")
	return nil
}

func (r *run) highlight(ctx context.Context) error {
	var (
		plan string
		t    time.Time
	)
	fresh := r.needs(types.StageHighlight)
	if fresh {
		t = r.started(types.StageHighlight)
		var err error
		switch r.opts.HighlightMode {
		case HighlightScene:
			plan, err = r.scenePlan(ctx)
		default:
			plan, err = r.llmPlan(ctx)
		}
		if err != nil {
			return err
		}
		if err := writeFileAtomic(r.layout.Plan, []byte(plan)); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(r.layout.Plan)
		if err != nil {
			return apperrors.ResumeState(r.layout.Plan, err)
		}
		plan = string(data)
	}

	ranges, err := highlight.Extractor{Strict: r.opts.StrictRanges}.Extract(plan)
	r.result.Ranges = ranges
	if err != nil {
		return err
	}
	if fresh {
		r.finished(types.StageHighlight, t, fmt.Sprintf("%d ranges (%s)", len(ranges), r.opts.HighlightMode))
	} else {
		r.skipped(types.StageHighlight, "plan present")
	}
	return nil
}

func (r *run) llmPlan(ctx context.Context) (string, error) {
	data, err := os.ReadFile(r.layout.Captions)
	if err != nil {
		return "", apperrors.ResumeState(r.layout.Captions, err)
	}
	return r.deps.Selector.SelectHighlights(ctx, string(data))
}

func (r *run) scenePlan(ctx context.Context) (string, error) {
	media := r.mediaPath()
	info, err := r.deps.Prober.Probe(ctx, media)
	if err != nil {
		return "", err
	}
	points, err := r.deps.Scenes.DetectScenes(ctx, media, r.opts.SceneThreshold)
	if err != nil {
		return "", err
	}
	ranges, err := scene.Segment(scene.Sanitize(points), info.Duration, r.opts.MinSceneDuration)
	if err != nil {
		return "", err
	}
	labels := make([]string, len(ranges))
	for i := range ranges {
		labels[i] = fmt.Sprintf("scene %d", i+1)
	}
	return highlight.Format(ranges, labels), nil
}

// cutSource is the captioned media, falling back to the uncaptioned one.
func (r *run) cutSource() string {
	if stagestate.IsComplete(r.layout.Captioned) {
		return r.layout.Captioned
	}
	return r.mediaPath()
}

func (r *run) cut(ctx context.Context) error {
	if len(r.result.Ranges) == 0 {
		r.skipped(types.StageCut, "no ranges")
		return nil
	}
	if !r.needs(types.StageCut) {
		if m, err := cutter.ReadManifest(r.layout.Manifest); err == nil {
			r.result.Cuts = m.Results
		}
		r.skipped(types.StageCut, "clips present")
		return nil
	}

	t := r.started(types.StageCut)
	source := r.cutSource()
	info, err := r.deps.Prober.Probe(ctx, source)
	if err != nil {
		return err
	}
	planner := &cutter.Planner{
		Media:     r.deps.Cutter,
		OutputDir: r.layout.SplitDir,
		Ext:       r.opts.ClipExt,
		Workers:   r.opts.CutWorkers,
	}
	if err := planner.Reset(); err != nil {
		return err
	}
	results := planner.PlanAndCut(ctx, types.MediaHandle{Path: source, Duration: info.Duration}, r.result.Ranges)
	r.result.Cuts = results

	err = cutter.WriteManifest(r.layout.Manifest, cutter.Manifest{
		JobID:     r.jobID,
		Source:    source,
		CreatedAt: time.Now(),
		Results:   results,
	})
	if err != nil {
		return err
	}
	ok := len(cutter.Succeeded(results))
	r.finished(types.StageCut, t, fmt.Sprintf("%d/%d clips", ok, len(results)))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write "+filepath.Base(path), err)
	}
	return nil
}

func stageNames(stages []types.Stage) []string {
	return lo.Map(stages, func(s types.Stage, _ int) string { return string(s) })
}
