package handler

import (
	"os"
	"path/filepath"
	"strings"

	"autocut/internal/appdirs"

	"github.com/samber/lo"
)

var appDirsResolver = appdirs.Resolve

// fileRoot is a directory tree served under /api/file/<alias>/.
type fileRoot struct {
	alias string
	dirs  []string
}

// fileRoots returns the served trees: job directories (the configured output
// base first, then the platform default) and uploaded sources.
func fileRoots(outputBaseDir string) []fileRoot {
	jobs := []string{outputBaseDir}
	uploads := []string{}
	if dirs, err := appDirsResolver(); err == nil {
		jobs = append(jobs, appdirs.JobRootFor(dirs))
		uploads = append(uploads, appdirs.UploadRootFor(dirs))
	}
	return []fileRoot{
		{alias: appdirs.JobRootName, dirs: uniquePaths(jobs...)},
		{alias: appdirs.UploadRootName, dirs: uniquePaths(append(uploads, appdirs.UploadRootName)...)},
	}
}

func preferredUploadRoot() string {
	return fileRoots("")[1].dirs[0]
}

// inUploadRoot reports whether path, after resolving symlinks, is a file
// below the upload root.
func inUploadRoot(path string) bool {
	root, err := filepath.EvalSymlinks(preferredUploadRoot())
	if err != nil {
		return false
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	if root, err = filepath.Abs(root); err != nil {
		return false
	}
	if target, err = filepath.Abs(target); err != nil {
		return false
	}
	return target != root && isPathWithinRoot(root, target)
}

// resolveDownloadPath maps "<alias>/<rel>" onto a file below that root. ok is
// false only when the request tries to leave the root; an unknown alias or a
// missing file yields ("", true) or a non-existent path.
func resolveDownloadPath(roots []fileRoot, requested string) (string, bool) {
	requested = strings.Trim(strings.ReplaceAll(strings.TrimSpace(requested), "\\", "/"), "/")
	if hasParentTraversal(requested) {
		return "", false
	}
	alias, rel, _ := strings.Cut(requested, "/")
	root, found := lo.Find(roots, func(r fileRoot) bool { return r.alias == alias })
	if !found || rel == "" {
		return "", true
	}

	var first string
	for _, dir := range root.dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(rel))
		if !isPathWithinRoot(dir, candidate) {
			continue
		}
		if first == "" {
			first = candidate
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return first, true
}

func uniquePaths(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	paths := make([]string, 0, len(values))
	for _, value := range values {
		cleaned := strings.TrimSpace(value)
		if cleaned == "" {
			continue
		}
		cleaned = filepath.Clean(cleaned)
		if _, exists := seen[cleaned]; exists {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}
	return paths
}

func isPathWithinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(candidate))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func hasParentTraversal(path string) bool {
	return lo.Contains(strings.Split(path, "/"), "..")
}
