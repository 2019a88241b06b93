// Package stagestate answers "is this stage already done?" from the job
// directory alone. A stage is complete when its artifact exists and is
// non-empty; nothing is cached between calls.
package stagestate

import (
	"os"

	"autocut/internal/types"
)

// IsComplete reports whether path is a non-empty file or a directory with at
// least one entry.
func IsComplete(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return info.Size() > 0
	}

	dir, err := os.Open(path)
	if err != nil {
		return false
	}
	defer dir.Close()
	_, err = dir.Readdirnames(1)
	return err == nil
}

// ArtifactProbe checks for the artifact of one stage.
type ArtifactProbe interface {
	Exists() bool
}

// ProbeFunc adapts a plain function to ArtifactProbe.
type ProbeFunc func() bool

func (f ProbeFunc) Exists() bool { return f() }

// FileProbe probes a file or directory path with IsComplete.
type FileProbe string

func (p FileProbe) Exists() bool { return IsComplete(string(p)) }

// State is one snapshot of stage completion.
type State struct {
	order    []types.Stage
	complete map[types.Stage]bool
}

func (s State) Complete(stage types.Stage) bool {
	return s.complete[stage]
}

func (s State) Stages() []types.Stage {
	return append([]types.Stage(nil), s.order...)
}

// Map returns a copy of the snapshot keyed by stage name.
func (s State) Map() map[string]bool {
	m := make(map[string]bool, len(s.complete))
	for k, v := range s.complete {
		m[string(k)] = v
	}
	return m
}

// Tracker composes the probes of a job.
type Tracker struct {
	order  []types.Stage
	probes map[types.Stage]ArtifactProbe
}

func NewTracker() *Tracker {
	return &Tracker{probes: make(map[types.Stage]ArtifactProbe)}
}

// Register adds or replaces the probe for stage.
func (t *Tracker) Register(stage types.Stage, probe ArtifactProbe) *Tracker {
	if _, ok := t.probes[stage]; !ok {
		t.order = append(t.order, stage)
	}
	t.probes[stage] = probe
	return t
}

// Exists probes one stage now. Unregistered stages are never complete.
func (t *Tracker) Exists(stage types.Stage) bool {
	probe, ok := t.probes[stage]
	return ok && probe.Exists()
}

// Snapshot probes every registered stage.
func (t *Tracker) Snapshot() State {
	s := State{
		order:    append([]types.Stage(nil), t.order...),
		complete: make(map[types.Stage]bool, len(t.order)),
	}
	for _, stage := range t.order {
		s.complete[stage] = t.probes[stage].Exists()
	}
	return s
}

// ForLayout registers the artifact of every file-backed stage of a job.
// The mux stage is tracked by the mixed media file; the secondary audio is
// probed under ArtifactAudio. Resolve has no artifact.
func ForLayout(layout types.JobLayout) *Tracker {
	return NewTracker().
		Register(types.StageDownload, FileProbe(layout.Video)).
		Register(types.ArtifactAudio, FileProbe(layout.Audio)).
		Register(types.StageMux, FileProbe(layout.Mixed)).
		Register(types.StageCaption, FileProbe(layout.Captions)).
		Register(types.StageTranslate, FileProbe(layout.Translated)).
		Register(types.StageBurn, FileProbe(layout.Captioned)).
		Register(types.StageHighlight, FileProbe(layout.Plan)).
		Register(types.StageCut, FileProbe(layout.SplitDir))
}
