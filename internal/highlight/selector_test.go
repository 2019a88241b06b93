package highlight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"autocut/internal/mocks"
	apperrors "autocut/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLLMSelectorFillsDurationsIntoPrompt(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything,
		mock.MatchedBy(func(p string) bool { return p == "clips of 30 to 60 seconds" }),
		"1\n00:00:01,000 --> 00:00:02,000\nhello\n").
		Return("1. [00:00:01,000-00:00:02,000] hello", nil)

	s := &LLMSelector{Chat: chat, Prompt: "clips of %d to %d seconds", MinClipSeconds: 30, MaxClipSeconds: 60}
	plan, err := s.SelectHighlights(context.Background(), "1\n00:00:01,000 --> 00:00:02,000\nhello\n")

	require.NoError(t, err)
	assert.Equal(t, "1. [00:00:01,000-00:00:02,000] hello", plan)
	chat.AssertExpectations(t)
}

func TestLLMSelectorUsesDefaultPrompt(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything,
		mock.MatchedBy(func(p string) bool { return len(p) > 0 && !strings.Contains(p, "%d") }),
		"captions").
		Return("", nil)

	s := &LLMSelector{Chat: chat}
	plan, err := s.SelectHighlights(context.Background(), "captions")

	require.NoError(t, err)
	assert.Empty(t, plan)
	chat.AssertExpectations(t)
}

func TestLLMSelectorWrapsAdapterError(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("429 too many requests"))

	s := &LLMSelector{Chat: chat}
	_, err := s.SelectHighlights(context.Background(), "captions")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeAdapter))
}

func TestLLMSelectorRejectsEmptyCaptions(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	s := &LLMSelector{Chat: chat}

	_, err := s.SelectHighlights(context.Background(), "  \n")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
	chat.AssertNotCalled(t, "ChatCompletion", mock.Anything, mock.Anything, mock.Anything)
}
