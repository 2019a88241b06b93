package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"autocut/internal/appcore"
	"autocut/internal/response"
	"autocut/internal/taskrunner"
	"autocut/internal/types"
	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type SubmitJobReq struct {
	SourceRef      string `json:"source_ref" binding:"required"`
	JobID          string `json:"job_id"`
	Force          bool   `json:"force"`
	TargetLanguage string `json:"target_language"`
	HighlightMode  string `json:"highlight_mode"`
	Publish        bool   `json:"publish"`
}

type JobSummary struct {
	JobId     string `json:"job_id"`
	SourceRef string `json:"source_ref"`
	Status    string `json:"status"`
	StatusMsg string `json:"status_msg"`
	Stage     string `json:"stage"`
	ClipCount int    `json:"clip_count"`
	CreatedAt int64  `json:"create_time"`
}

func (h *Handler) SubmitJob(c *gin.Context) {
	var req SubmitJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("SubmitJob ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 Invalid parameters", err))
		return
	}
	log.GetLogger().Info("SubmitJob received request", zap.Any("req", req))
	if !h.allowSource(c, req.SourceRef) {
		return
	}

	job := appcore.JobRequest{
		ID:             req.JobID,
		SourceRef:      req.SourceRef,
		Force:          req.Force,
		TargetLanguage: req.TargetLanguage,
		HighlightMode:  req.HighlightMode,
		Publish:        req.Publish,
	}
	record, err := h.Service.CreateJob(&job)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	h.submit(c, job, record)
}

// allowSource limits local: refs arriving over HTTP to files uploaded through
// /api/file. The CLI is not bound by this.
func (h *Handler) allowSource(c *gin.Context, ref string) bool {
	path, ok := util.IsLocalRef(strings.TrimSpace(ref))
	if !ok || inUploadRoot(path) {
		return true
	}
	log.GetLogger().Warn("rejected local source outside upload root", zap.String("path", path))
	response.Fail(c, http.StatusBadRequest, apperrors.WrapWithDetail(apperrors.CodeInvalidParams,
		"本地文件必须先上传 Local sources must be uploaded first", path, nil))
	return false
}

func (h *Handler) submit(c *gin.Context, job appcore.JobRequest, record *types.JobRecord) {
	if err := h.Submitter.Submit(c.Request.Context(), job); err != nil {
		code := apperrors.CodeUnknown
		if errors.Is(err, taskrunner.ErrQueueFull) {
			code = apperrors.CodeQueueFull
		}
		record.Status = appcore.JobStatusFailed
		record.FailReason = err.Error()
		record.StatusMsg = "提交失败 Submit failed"
		h.Service.MarkFailed(record)
		response.ErrorResponse(c, apperrors.Wrap(code, "任务提交失败 Failed to submit job", err))
		return
	}
	response.Success(c, record)
}

func (h *Handler) GetJob(c *gin.Context) {
	view, err := h.Service.GetJob(c.Param("jobId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) GetJobHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	jobs, err := h.Service.History(limit)
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeDBError, "获取历史记录失败 Failed to load history", err))
		return
	}
	response.Success(c, lo.Map(jobs, func(j types.JobRecord, _ int) JobSummary {
		return JobSummary{
			JobId:     j.JobId,
			SourceRef: j.SourceRef,
			Status:    j.Status.String(),
			StatusMsg: j.StatusMsg,
			Stage:     j.Stage,
			ClipCount: j.ClipCount,
			CreatedAt: j.CreateTime,
		}
	}))
}

// DeleteJob drops the history row. The job directory stays so the job can
// still be resumed by submitting it again.
func (h *Handler) DeleteJob(c *gin.Context) {
	jobId := c.Param("jobId")
	if err := h.Service.DeleteJob(jobId); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if h.Hub != nil {
		h.Hub.Forget(jobId)
	}
	response.Success(c, nil)
}

// RetryJob resubmits a finished or failed job. Completed stages are skipped
// unless force is set.
func (h *Handler) RetryJob(c *gin.Context) {
	view, err := h.Service.GetJob(c.Param("jobId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if !view.Status.IsTerminal() {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams,
			"只能重试失败或已完成的任务 Only finished jobs can be retried", view.Status.String(), nil))
		return
	}
	if !h.allowSource(c, view.SourceRef) {
		return
	}

	job := appcore.JobRequest{
		ID:             view.JobId,
		SourceRef:      view.SourceRef,
		Force:          c.Query("force") == "true",
		TargetLanguage: view.TargetLanguage,
		HighlightMode:  view.HighlightMode,
	}
	record, err := h.Service.CreateJob(&job)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	h.submit(c, job, record)
}

func (h *Handler) CancelJob(c *gin.Context) {
	if h.Canceler == nil || !h.Canceler.Cancel(c.Param("jobId")) {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeNotFound, "任务未在运行 Job is not running", c.Param("jobId"), nil))
		return
	}
	response.Success(c, nil)
}

func (h *Handler) JobEvents(c *gin.Context) {
	if h.Hub == nil {
		response.Fail(c, http.StatusNotFound, apperrors.New(apperrors.CodeNotFound, "事件推送未启用 Events are disabled"))
		return
	}
	h.Hub.ServeWS(c.Writer, c.Request, c.Param("jobId"))
}
