package types

import (
	"path/filepath"

	"autocut/internal/appcore"
)

// Stage names one durable pipeline step.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageDownload  Stage = "download"
	StageMux       Stage = "mux"
	StageCaption   Stage = "caption"
	StageTranslate Stage = "translate"
	StageBurn      Stage = "burn"
	StageHighlight Stage = "highlight"
	StageCut       Stage = "cut"

	// ArtifactAudio is the secondary audio track. It is fetched inside the
	// mux stage and tracked on its own so a rerun does not fetch it twice.
	ArtifactAudio Stage = "audio"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageResolve,
	StageDownload,
	StageMux,
	StageCaption,
	StageTranslate,
	StageBurn,
	StageHighlight,
	StageCut,
}

// 任务目录中的文件名
const (
	VideoFileName          = "v1.mp4"
	AudioFileName          = "v1.mp3"
	MixedVideoFileName     = "v1_mixed.mp4"
	CaptionFileName        = "v1.srt"
	CaptionedVideoFileName = "v1_with_subtitle.mp4"
	HighlightPlanFileName  = "llm_split.txt"
	CutManifestFileName    = "cuts.json"
	OutputDirName          = "output"
	SplitDirName           = "split"
)

func TranslatedCaptionFileName(targetLanguage string) string {
	return "v1_" + targetLanguage + ".srt"
}

// JobLayout holds every artifact path of one job directory.
type JobLayout struct {
	Dir        string
	Video      string
	Audio      string
	Mixed      string
	Captions   string
	Translated string
	Captioned  string
	Plan       string
	SplitDir   string
	Manifest   string
}

func NewJobLayout(dir, targetLanguage string) JobLayout {
	return JobLayout{
		Dir:        dir,
		Video:      filepath.Join(dir, VideoFileName),
		Audio:      filepath.Join(dir, AudioFileName),
		Mixed:      filepath.Join(dir, MixedVideoFileName),
		Captions:   filepath.Join(dir, CaptionFileName),
		Translated: filepath.Join(dir, TranslatedCaptionFileName(targetLanguage)),
		Captioned:  filepath.Join(dir, CaptionedVideoFileName),
		Plan:       filepath.Join(dir, HighlightPlanFileName),
		SplitDir:   filepath.Join(dir, OutputDirName, SplitDirName),
		Manifest:   filepath.Join(dir, CutManifestFileName),
	}
}

// JobRecord is the run history row. It is never consulted for resumption;
// the job directory is the checkpoint.
type JobRecord struct {
	Id             uint64            `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	JobId          string            `json:"job_id" gorm:"column:job_id;uniqueIndex;size:64"`
	SourceRef      string            `json:"source_ref" gorm:"column:source_ref"`
	JobDir         string            `json:"job_dir" gorm:"column:job_dir"`
	TargetLanguage string            `json:"target_language" gorm:"column:target_language"`
	HighlightMode  string            `json:"highlight_mode" gorm:"column:highlight_mode"`
	Status         appcore.JobStatus `json:"status" gorm:"column:status"`
	StatusMsg      string            `json:"status_msg" gorm:"column:status_msg"`
	Stage          string            `json:"stage" gorm:"column:stage"`
	FailReason     string            `json:"fail_reason" gorm:"column:fail_reason"`
	ClipCount      int               `json:"clip_count" gorm:"column:clip_count"`
	FailedClips    int               `json:"failed_clips" gorm:"column:failed_clips"`
	CreateTime     int64             `json:"create_time" gorm:"column:create_time;autoCreateTime"`
	UpdateTime     int64             `json:"update_time" gorm:"column:update_time;autoUpdateTime"`
	Force          bool              `json:"force" gorm:"column:force"`
	Clips          []JobClip         `json:"clips" gorm:"foreignKey:JobId;references:JobId"`
}

func (JobRecord) TableName() string {
	return "jobs"
}

// JobClip is one produced clip of a job, with its remote URL once published.
type JobClip struct {
	Id            uint64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	JobId         string  `json:"job_id" gorm:"column:job_id;index"`
	Index         int     `json:"index" gorm:"column:clip_index"`
	Start         float64 `json:"start" gorm:"column:start"`
	End           float64 `json:"end" gorm:"column:end"`
	ClipPath      string  `json:"clip_path" gorm:"column:clip_path"`
	ThumbnailPath string  `json:"thumbnail_path" gorm:"column:thumbnail_path"`
	RemoteURL     string  `json:"remote_url" gorm:"column:remote_url"`
}

func (JobClip) TableName() string {
	return "job_clips"
}
