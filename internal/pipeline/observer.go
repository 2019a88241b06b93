package pipeline

import (
	"time"

	"autocut/internal/appcore"
	"autocut/internal/types"
)

// Observer receives stage progress. Observers are notified synchronously and
// cannot affect the run.
type Observer interface {
	OnStage(event appcore.JobEvent)
}

type ObserverFunc func(event appcore.JobEvent)

func (f ObserverFunc) OnStage(event appcore.JobEvent) { f(event) }

// MultiObserver fans an event out to every non-nil observer.
type MultiObserver []Observer

func (m MultiObserver) OnStage(event appcore.JobEvent) {
	for _, o := range m {
		if o != nil {
			o.OnStage(event)
		}
	}
}

func newEvent(jobID string, kind appcore.EventKind, stage types.Stage, message string, err error) appcore.JobEvent {
	ev := appcore.JobEvent{
		JobID:      jobID,
		Kind:       kind,
		Stage:      string(stage),
		Message:    message,
		OccurredAt: time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}
