package util

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?s)```[A-Za-z]*\\n?(.*?)```")

// StripCodeFence returns the body of the first markdown code block in text,
// or text itself when there is none. Models often wrap plain answers in one.
func StripCodeFence(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// CopyFile copies src to dst through a temporary file next to dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
