package appcore

import (
	"context"
	"time"
)

// JobRequest is one submission of a source for processing.
type JobRequest struct {
	ID             string `json:"job_id"`
	SourceRef      string `json:"source_ref"`
	Force          bool   `json:"force"`
	TargetLanguage string `json:"target_language,omitempty"`
	HighlightMode  string `json:"highlight_mode,omitempty"`
	Publish        bool   `json:"publish,omitempty"`
}

type JobStatus uint8

const (
	JobStatusQueued JobStatus = iota
	JobStatusRunning
	JobStatusSucceeded
	JobStatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusQueued:
		return "queued"
	case JobStatusRunning:
		return "running"
	case JobStatusSucceeded:
		return "succeeded"
	case JobStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

type EventKind string

const (
	EventStageStarted  EventKind = "stage_started"
	EventStageSkipped  EventKind = "stage_skipped"
	EventStageFinished EventKind = "stage_finished"
	EventStageFailed   EventKind = "stage_failed"
	EventJobFinished   EventKind = "job_finished"
)

// JobEvent is a progress notification for one job.
type JobEvent struct {
	JobID      string    `json:"job_id"`
	Kind       EventKind `json:"kind"`
	Stage      string    `json:"stage,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Submitter accepts jobs for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, req JobRequest) error
}
