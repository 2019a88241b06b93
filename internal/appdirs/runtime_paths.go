package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	JobRootName    = "jobs"
	UploadRootName = "uploads"
	dbFileName     = "autocut.db"
)

// JobRootFor is the default pipeline output base directory. Every job gets
// its own subdirectory below it.
func JobRootFor(paths Paths) string {
	return filepath.Join(orDefault(paths.OutputDir, "."), JobRootName)
}

// UploadRootFor holds videos posted to the HTTP API until a job reads them
// through a local: reference.
func UploadRootFor(paths Paths) string {
	return filepath.Join(orDefault(paths.OutputDir, "."), UploadRootName)
}

// DBPathFor is the sqlite file backing job history.
func DBPathFor(paths Paths) string {
	return filepath.Join(orDefault(paths.CacheDir, "cache"), dbFileName)
}

func ResolveJobRoot() (string, error) {
	return resolveWith(JobRootFor)
}

func ResolveDBPath() (string, error) {
	return resolveWith(DBPathFor)
}

func resolveWith(derive func(Paths) string) (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return derive(paths), nil
}

func orDefault(dir, fallback string) string {
	if d := strings.TrimSpace(dir); d != "" {
		return filepath.Clean(d)
	}
	return fallback
}
