package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"autocut/internal/types"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"
)

var numberedLineRe = regexp.MustCompile(`^\s*(\d+)[.)、:：]\s*(.*)$`)

// LLMTranslator implements types.Translator over a chat model using a
// numbered-line exchange.
type LLMTranslator struct {
	Chat   types.ChatCompleter
	Prompt string
}

func (t *LLMTranslator) Translate(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prompt := t.Prompt
	if prompt == "" {
		prompt = types.TranslatePrompt
	}
	if strings.Count(prompt, "%s") == 1 {
		prompt = fmt.Sprintf(prompt, targetLanguage)
	}

	var sb strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.ReplaceAll(text, "\n", " "))
	}

	resp, err := t.Chat.ChatCompletion(ctx, prompt, sb.String())
	if err != nil {
		return nil, apperrors.Adapter("translation", err)
	}

	parsed := parseNumbered(util.StripCodeFence(resp), len(texts))
	if len(parsed) == 0 {
		return nil, apperrors.WrapWithDetail(apperrors.CodeTranslateFailed, "translation response has no numbered lines", resp, nil)
	}

	out := make([]string, len(texts))
	for i, text := range texts {
		if tr, ok := parsed[i+1]; ok && tr != "" {
			out[i] = tr
		} else {
			out[i] = text
		}
	}
	return out, nil
}

// parseNumbered maps line numbers in [1, n] to their text. The first
// occurrence of a number wins.
func parseNumbered(resp string, n int) map[int]string {
	parsed := make(map[int]string)
	for _, line := range strings.Split(resp, "\n") {
		m := numberedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		if _, seen := parsed[idx]; !seen {
			parsed[idx] = strings.TrimSpace(m[2])
		}
	}
	return parsed
}
