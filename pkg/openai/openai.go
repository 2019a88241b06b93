package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type Client struct {
	client *openai.Client
	model  string
	retry  util.RetryPolicy
}

// NewClient builds a chat client for any OpenAI-compatible endpoint.
func NewClient(baseUrl, apiKey, model string, proxy *url.URL) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		cfg.BaseURL = strings.TrimRight(baseUrl, "/")
	}

	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	// 不设置超时，长字幕的请求可能很慢；由调用方的 ctx 控制
	cfg.HTTPClient = &http.Client{Transport: transport}

	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		retry:  util.DefaultRetryPolicy,
	}
}

// WithRetry replaces the retry policy used for rate limits and server errors.
func (c *Client) WithRetry(policy util.RetryPolicy) *Client {
	c.retry = policy
	return c
}

func (c *Client) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	var content string
	err := util.Retry(ctx, "chat completion", c.retry, func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return util.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return util.Permanent(errors.New("chat completion returned no choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		log.GetLogger().Error("chat completion failed", zap.String("model", c.model), zap.Error(err))
		if statusCode(err) == http.StatusTooManyRequests {
			return "", apperrors.Wrap(apperrors.CodeLLMQuotaExceeded, "llm rate limit or quota exceeded", err)
		}
		return "", err
	}
	return content, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// retryable reports whether err is a rate limit, a server error or a
// transport failure.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := statusCode(err)
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}
