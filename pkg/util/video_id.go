package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

// LocalPrefix marks a source ref that points at a file on disk.
const LocalPrefix = "local:"

var (
	youtubeIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?:v=|/shorts/|/embed/|/live/)([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`),
	}
	bilibiliIDPattern = regexp.MustCompile(`(BV[0-9A-Za-z]{10})`)
	unsafeNameChars   = regexp.MustCompile(`[^0-9A-Za-z_.-]+`)
)

func GetYouTubeID(ref string) string {
	for _, re := range youtubeIDPatterns {
		if m := re.FindStringSubmatch(ref); m != nil {
			return m[1]
		}
	}
	return ""
}

func GetBilibiliVideoId(ref string) string {
	if m := bilibiliIDPattern.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	return ""
}

// IsLocalRef reports whether ref names a local file, returning its path.
func IsLocalRef(ref string) (string, bool) {
	if path, ok := strings.CutPrefix(ref, LocalPrefix); ok {
		return path, true
	}
	return "", false
}

// ExtractVideoID derives a stable, filesystem-safe job id from a source ref.
// The same ref always yields the same id.
func ExtractVideoID(ref string) string {
	ref = strings.TrimSpace(ref)
	if path, ok := IsLocalRef(ref); ok {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return SanitizePathName(base) + "_" + shortHash(path)
	}
	if id := GetYouTubeID(ref); id != "" {
		return id
	}
	if id := GetBilibiliVideoId(ref); id != "" {
		return id
	}
	return shortHash(ref)
}

// SanitizePathName replaces characters that are unsafe in file names.
func SanitizePathName(name string) string {
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return "job"
	}
	return name
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
