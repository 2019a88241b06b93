// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses
// and for the pipeline's error kinds.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeUnauthorized  = 1003
	CodeQueueFull     = 1004

	// Media acquisition errors (1100-1199)
	CodeVideoDownload  = 1100
	CodeAudioDownload  = 1101
	CodeVideoNotFound  = 1102
	CodeUnsupportedURL = 1103
	CodeRateLimited    = 1105

	// Translation errors (1300-1399)
	CodeTranslateFailed  = 1300
	CodeLLMQuotaExceeded = 1302

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502
	CodeUploadFailed   = 1503

	// Pipeline errors (1700-1799)
	CodeFormat       = 1700
	CodeInvalidInput = 1701
	CodeAdapter      = 1702
	CodeResumeState  = 1703
	CodeNoCaptions   = 1704
	CodeStageFailed  = 1705
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// FormatError reports a malformed timecode or bracket token.
func FormatError(message, detail string) *AppError {
	return WrapWithDetail(CodeFormat, message, detail, nil)
}

// InvalidInput reports segmentation or cut input that failed validation.
func InvalidInput(message, detail string) *AppError {
	return WrapWithDetail(CodeInvalidInput, message, detail, nil)
}

// Adapter wraps a failure of an external collaborator (network, codec, llm, detection).
func Adapter(adapter string, cause error) *AppError {
	return WrapWithDetail(CodeAdapter, adapter+" failed", adapter, cause)
}

// ResumeState reports a persisted artifact that exists but cannot be read.
func ResumeState(path string, cause error) *AppError {
	return WrapWithDetail(CodeResumeState, "unreadable stage artifact", path, cause)
}

// StageFailed marks the failure that aborted a pipeline run.
func StageFailed(jobID, stage string, cause error) *AppError {
	return &AppError{
		Code:    CodeStageFailed,
		Message: fmt.Sprintf("stage %s failed for job %s", stage, jobID),
		Detail:  GetMessage(cause),
		JobID:   jobID,
		Stage:   stage,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "参数错误 Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "资源不存在 Resource not found")
	ErrUnauthorized  = New(CodeUnauthorized, "未授权 Unauthorized")
	ErrQueueFull     = New(CodeQueueFull, "任务队列已满 Job queue is full")

	// Media
	ErrVideoDownload  = New(CodeVideoDownload, "视频下载失败 Video download failed")
	ErrAudioDownload  = New(CodeAudioDownload, "音频下载失败 Audio download failed")
	ErrRateLimited    = New(CodeRateLimited, "请求频率限制 Rate limited")
	ErrUnsupportedURL = New(CodeUnsupportedURL, "不支持的链接 Unsupported URL")

	// Translation
	ErrTranslateFailed  = New(CodeTranslateFailed, "翻译失败 Translation failed")
	ErrLLMQuotaExceeded = New(CodeLLMQuotaExceeded, "LLM配额耗尽 LLM quota exceeded")

	// Storage
	ErrDBError      = New(CodeDBError, "数据库错误 Database error")
	ErrFileNotFound = New(CodeFileNotFound, "文件不存在 File not found")

	// Pipeline
	ErrNoCaptions = New(CodeNoCaptions, "未找到字幕 No captions available")
)
