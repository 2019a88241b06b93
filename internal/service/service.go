package service

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"autocut/config"
	"autocut/internal/appcore"
	"autocut/internal/highlight"
	"autocut/internal/pipeline"
	"autocut/internal/stagestate"
	"autocut/internal/storage"
	"autocut/internal/translate"
	"autocut/internal/types"
	"autocut/log"
	"autocut/pkg/aliyun"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/ffmpeg"
	"autocut/pkg/openai"
	"autocut/pkg/tubedown"
	"autocut/pkg/util"
	"autocut/pkg/ytdlp"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Service runs jobs through the pipeline and keeps their history.
type Service struct {
	Deps     pipeline.Deps
	Options  pipeline.Options
	Uploader types.Uploader
	// Observers receive the stage events of every job this service runs.
	Observers []pipeline.Observer
}

// NewService wires the collaborators described by config.Conf.
func NewService() (*Service, error) {
	conf := config.Conf

	media := ffmpeg.New(conf.Bin.Ffmpeg, conf.Bin.Ffprobe)
	media.SubtitleStyle = conf.Pipeline.SubtitleStyle

	yt := ytdlp.New(conf.Bin.Ytdlp)
	yt.FfmpegPath = conf.Bin.Ffmpeg
	yt.Proxy = conf.App.Proxy
	yt.CookiesPath = conf.Download.CookiesPath
	if conf.Download.VideoFormat != "" {
		yt.VideoFormat = conf.Download.VideoFormat
	}

	var downloader types.Downloader = yt
	if conf.Download.Provider == "tubedown" {
		downloader = tubedown.New(conf.Download.Endpoint, conf.App.Proxy)
	}
	log.GetLogger().Info("当前选择的下载源", zap.String("provider", lo.Ternary(conf.Download.Provider == "", "ytdlp", conf.Download.Provider)))

	chat := openai.NewClient(conf.Llm.BaseUrl, conf.Llm.ApiKey, conf.Llm.Model, conf.App.ParsedProxy)
	translateChat := chat
	if tl := config.TranslateLlm(); tl != conf.Llm {
		translateChat = openai.NewClient(tl.BaseUrl, tl.ApiKey, tl.Model, conf.App.ParsedProxy)
	}

	outputDir, err := config.OutputDir()
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Deps: pipeline.Deps{
			Downloader: downloader,
			Prober:     media,
			Muxer:      media,
			Captions:   yt,
			Translator: &translate.LLMTranslator{Chat: translateChat, Prompt: conf.Translate.Prompt},
			Burner:     media,
			Selector: &highlight.LLMSelector{
				Chat:           chat,
				Prompt:         conf.Highlight.Prompt,
				MinClipSeconds: conf.Highlight.MinClipDuration,
				MaxClipSeconds: conf.Highlight.MaxClipDuration,
			},
			Scenes: media,
			Cutter: media,
		},
		Options: pipeline.Options{
			OutputBaseDir:      outputDir,
			ForceReprocess:     conf.Pipeline.ForceReprocess,
			TargetLanguage:     conf.Pipeline.TargetLanguage,
			CaptionLanguages:   conf.Pipeline.CaptionLanguages,
			HighlightMode:      pipeline.HighlightMode(conf.Highlight.Mode),
			SceneThreshold:     conf.Highlight.SceneThreshold,
			MinSceneDuration:   conf.Highlight.MinSceneDuration,
			StrictRanges:       conf.Pipeline.StrictRanges,
			TranslateBatchSize: conf.Pipeline.TranslateBatchSize,
			CutWorkers:         conf.Pipeline.CutWorkers,
			ClipExt:            conf.Pipeline.ClipExt,
		},
	}
	if conf.Oss.Enabled {
		oss := aliyun.NewOssClient(conf.Oss.AccessKeyId, conf.Oss.AccessKeySecret, conf.Oss.Bucket, conf.Oss.Region, conf.Oss.Endpoint)
		oss.Prefix = conf.Oss.Prefix
		svc.Uploader = oss
	}
	return svc, nil
}

// ValidateSourceRef rejects refs that can never resolve to a video.
func ValidateSourceRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return apperrors.New(apperrors.CodeInvalidParams, "视频链接不能为空 Source is required")
	}
	if p, ok := util.IsLocalRef(ref); ok {
		if _, err := os.Stat(p); err != nil {
			return apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "本地文件不存在 Local file not found", p, err)
		}
		return nil
	}
	if strings.Contains(ref, "youtube.com") || strings.Contains(ref, "youtu.be") {
		if util.GetYouTubeID(ref) == "" {
			return apperrors.New(apperrors.CodeUnsupportedURL, "YouTube链接不合法 Invalid YouTube URL")
		}
	}
	if strings.Contains(ref, "bilibili.com") {
		if util.GetBilibiliVideoId(ref) == "" {
			return apperrors.New(apperrors.CodeUnsupportedURL, "Bilibili链接不合法 Invalid Bilibili URL")
		}
	}
	return nil
}

// JobIDFor is the job directory name a request is processed under.
func JobIDFor(req appcore.JobRequest) string {
	if strings.TrimSpace(req.ID) != "" {
		return util.SanitizePathName(req.ID)
	}
	return util.ExtractVideoID(req.SourceRef)
}

func (s *Service) optionsFor(req appcore.JobRequest) pipeline.Options {
	opts := s.Options
	opts.JobID = JobIDFor(req)
	opts.ForceReprocess = opts.ForceReprocess || req.Force
	if req.TargetLanguage != "" {
		opts.TargetLanguage = req.TargetLanguage
	}
	if req.HighlightMode != "" {
		opts.HighlightMode = pipeline.HighlightMode(req.HighlightMode)
	}
	return opts
}

// CreateJob validates req, fills in its id and stores it as queued.
func (s *Service) CreateJob(req *appcore.JobRequest) (*types.JobRecord, error) {
	if err := ValidateSourceRef(req.SourceRef); err != nil {
		return nil, err
	}
	req.SourceRef = strings.TrimSpace(req.SourceRef)
	req.ID = JobIDFor(*req)
	opts := s.optionsFor(*req)
	if opts.HighlightMode != pipeline.HighlightLLM && opts.HighlightMode != pipeline.HighlightScene {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "不支持的高光模式 Unknown highlight mode", string(opts.HighlightMode), nil)
	}

	if existing, err := storage.GetJob(req.ID); err == nil && existing.Status == appcore.JobStatusRunning {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "任务正在运行 Job is already running", req.ID, nil)
	}

	record := &types.JobRecord{
		JobId:          req.ID,
		SourceRef:      req.SourceRef,
		JobDir:         filepath.Join(opts.OutputBaseDir, req.ID),
		TargetLanguage: opts.TargetLanguage,
		HighlightMode:  string(opts.HighlightMode),
		Status:         appcore.JobStatusQueued,
		StatusMsg:      "排队中 Queued",
		Force:          opts.ForceReprocess,
	}
	if err := storage.SaveJob(record); err != nil {
		log.GetLogger().Error("CreateJob SaveJob err", zap.String("jobId", req.ID), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeDBError, "保存任务失败 Failed to save job", err)
	}
	return record, nil
}

// RunJob processes req synchronously. History updates are best effort: a
// job without a database still runs.
func (s *Service) RunJob(ctx context.Context, req appcore.JobRequest, observers ...pipeline.Observer) (*pipeline.Result, error) {
	opts := s.optionsFor(req)
	logger := log.ForJob(opts.JobID)

	record := &types.JobRecord{JobId: opts.JobID}
	if existing, err := storage.GetJob(opts.JobID); err == nil {
		record = existing
	}
	record.SourceRef = req.SourceRef
	record.JobDir = filepath.Join(opts.OutputBaseDir, opts.JobID)
	record.TargetLanguage = opts.TargetLanguage
	record.HighlightMode = string(opts.HighlightMode)
	record.Force = opts.ForceReprocess
	record.Status = appcore.JobStatusRunning
	record.StatusMsg = "处理中 Running"
	record.FailReason = ""
	s.save(logger, record)

	progress := pipeline.ObserverFunc(func(ev appcore.JobEvent) {
		if ev.Kind != appcore.EventStageStarted {
			return
		}
		record.Stage = ev.Stage
		s.save(logger, record)
	})
	all := append(append([]pipeline.Observer{progress}, s.Observers...), observers...)

	orch, err := pipeline.New(s.Deps, opts, all...)
	if err != nil {
		s.fail(logger, record, err)
		return nil, err
	}

	result, err := orch.Run(ctx, req.SourceRef)
	if err != nil {
		s.fail(logger, record, err)
		return result, err
	}

	clips := s.clipsOf(ctx, logger, result, req.Publish)
	if storage.DB != nil {
		if err := storage.SaveClips(opts.JobID, clips); err != nil {
			logger.Warn("failed to save clips", zap.Error(err))
		}
	}

	record.Status = appcore.JobStatusSucceeded
	record.StatusMsg = "已完成 Done"
	record.Stage = ""
	record.ClipCount = len(clips)
	record.FailedClips = len(result.Cuts) - len(clips)
	s.save(logger, record)
	return result, nil
}

func (s *Service) clipsOf(ctx context.Context, logger *zap.Logger, result *pipeline.Result, publish bool) []types.JobClip {
	clips := make([]types.JobClip, 0, len(result.Cuts))
	for _, c := range result.Cuts {
		if !c.OK() {
			continue
		}
		clip := types.JobClip{
			JobId:         result.JobID,
			Index:         c.Index,
			Start:         c.Range.Start,
			End:           c.Range.End,
			ClipPath:      c.ClipPath,
			ThumbnailPath: c.ThumbnailPath,
		}
		if publish && s.Uploader != nil {
			key := path.Join(result.JobID, filepath.Base(c.ClipPath))
			url, err := s.Uploader.Upload(ctx, c.ClipPath, key)
			if err != nil {
				logger.Warn("clip upload failed", zap.Int("index", c.Index), zap.Error(err))
			} else {
				clip.RemoteURL = url
				if c.ThumbnailPath != "" {
					if _, err = s.Uploader.Upload(ctx, c.ThumbnailPath, path.Join(result.JobID, filepath.Base(c.ThumbnailPath))); err != nil {
						logger.Warn("thumbnail upload failed", zap.Int("index", c.Index), zap.Error(err))
					}
				}
			}
		}
		clips = append(clips, clip)
	}
	return clips
}

func (s *Service) fail(logger *zap.Logger, record *types.JobRecord, err error) {
	record.Status = appcore.JobStatusFailed
	record.StatusMsg = "任务失败 Failed"
	record.FailReason = err.Error()
	s.save(logger, record)
}

func (s *Service) save(logger *zap.Logger, record *types.JobRecord) {
	if storage.DB == nil {
		return
	}
	if err := storage.SaveJob(record); err != nil {
		logger.Warn("failed to save job record", zap.Error(err))
	}
}

// JobView is a history record plus what the job directory currently holds.
type JobView struct {
	*types.JobRecord
	Stages map[string]bool   `json:"stages"`
	Files  map[string]string `json:"files"`
}

func (s *Service) GetJob(jobId string) (*JobView, error) {
	record, err := storage.GetJob(jobId)
	if err != nil {
		return nil, err
	}
	layout := types.NewJobLayout(record.JobDir, record.TargetLanguage)
	view := &JobView{
		JobRecord: record,
		Stages:    stagestate.ForLayout(layout).Snapshot().Map(),
		Files:     map[string]string{},
	}
	for name, p := range map[string]string{
		"video":      layout.Video,
		"captions":   layout.Captions,
		"translated": layout.Translated,
		"captioned":  layout.Captioned,
		"plan":       layout.Plan,
		"manifest":   layout.Manifest,
	} {
		if !stagestate.IsComplete(p) {
			continue
		}
		if rel, err := artifactPath(s.Options.OutputBaseDir, p); err == nil {
			view.Files[name] = rel
		}
	}
	for i := range record.Clips {
		if rel, err := artifactPath(s.Options.OutputBaseDir, record.Clips[i].ClipPath); err == nil {
			view.Files[filepath.Base(rel)] = rel
		}
	}
	return view, nil
}

func (s *Service) History(limit int) ([]types.JobRecord, error) {
	return storage.GetJobHistory(limit)
}

func (s *Service) DeleteJob(jobId string) error {
	record, err := storage.GetJob(jobId)
	if err != nil {
		return err
	}
	if record.Status == appcore.JobStatusRunning {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "任务正在运行 Job is running", jobId, nil)
	}
	return storage.DeleteJob(jobId)
}

// MarkFailed records a job that never reached a worker.
func (s *Service) MarkFailed(record *types.JobRecord) {
	s.save(log.ForJob(record.JobId), record)
}
