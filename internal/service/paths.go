package service

import (
	"fmt"
	"path/filepath"
	"strings"
)

// artifactPath turns a file inside the output base dir into the slash path
// the file download API serves it under.
func artifactPath(outputBaseDir, localPath string) (string, error) {
	root := filepath.Clean(outputBaseDir)
	relPath, err := filepath.Rel(root, filepath.Clean(localPath))
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("job artifact path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("job artifact path %q is outside output root %q", localPath, root)
	}
	return filepath.ToSlash(relPath), nil
}

// ResolveArtifact maps a download path back to a file under the output base
// dir, rejecting anything that escapes it.
func ResolveArtifact(outputBaseDir, downloadPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(downloadPath, "/")))
	if cleaned == "." || cleaned == ".." || filepath.IsAbs(cleaned) ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact path %q", downloadPath)
	}
	return filepath.Join(filepath.Clean(outputBaseDir), cleaned), nil
}
