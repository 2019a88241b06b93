package highlight

import (
	"context"
	"fmt"
	"strings"

	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"

	"go.uber.org/zap"
)

const (
	defaultMinClipSeconds = 45
	defaultMaxClipSeconds = 90
)

// LLMSelector asks a chat model for highlight ranges over a caption file.
type LLMSelector struct {
	Chat           types.ChatCompleter
	Prompt         string
	MinClipSeconds int
	MaxClipSeconds int
}

var _ types.HighlightSelector = (*LLMSelector)(nil)

func (s *LLMSelector) SelectHighlights(ctx context.Context, captionText string) (string, error) {
	if strings.TrimSpace(captionText) == "" {
		return "", apperrors.InvalidInput("caption text is empty", "")
	}

	prompt := s.Prompt
	if prompt == "" {
		prompt = types.HighlightPrompt
	}
	minSec, maxSec := s.MinClipSeconds, s.MaxClipSeconds
	if minSec <= 0 {
		minSec = defaultMinClipSeconds
	}
	if maxSec < minSec {
		maxSec = max(defaultMaxClipSeconds, minSec)
	}

	systemPrompt := prompt
	if strings.Count(prompt, "%d") == 2 {
		systemPrompt = fmt.Sprintf(prompt, minSec, maxSec)
	}

	resp, err := s.Chat.ChatCompletion(ctx, systemPrompt, captionText)
	if err != nil {
		return "", apperrors.Adapter("highlight selection", err)
	}

	log.GetLogger().Info("highlight plan received",
		zap.Int("chars", len(resp)),
		zap.Int("ranges", len(Extract(resp))))
	return resp, nil
}
