package cutter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"autocut/internal/types"
	apperrors "autocut/pkg/errors"
)

// Manifest records the outcome of the last cut of a job.
type Manifest struct {
	JobID     string            `json:"job_id"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"created_at"`
	Results   []types.CutResult `json:"results"`
}

func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to encode cut manifest", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create manifest directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write cut manifest", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write cut manifest", err)
	}
	return nil
}

func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, apperrors.Wrap(apperrors.CodeFileNotFound, "cut manifest not found", err)
		}
		return m, apperrors.ResumeState(path, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, apperrors.ResumeState(path, err)
	}
	return m, nil
}
