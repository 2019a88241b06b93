package response

import (
	"errors"
	"net/http"

	apperrors "autocut/pkg/errors"

	"github.com/gin-gonic/gin"
)

const successMsg = "成功 Success"

// Response is the envelope of every API reply. Failures are reported in
// Error with HTTP 200 unless the transport itself must signal them.
type Response struct {
	Error  int32  `json:"error"`            // Error code (0 = success)
	Msg    string `json:"msg"`              // Human-readable message
	Detail string `json:"detail,omitempty"` // Additional error details
	JobID  string `json:"job_id,omitempty"` // Job the failure belongs to
	Stage  string `json:"stage,omitempty"`  // Failed pipeline stage
	Data   any    `json:"data"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Msg: successMsg, Data: data})
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusOK, Response{Error: int32(code), Msg: msg})
}

// FromError converts err to a Response, carrying the code, detail, job and
// stage of an AppError anywhere in the chain. Other errors map to
// CodeUnknown.
func FromError(err error) Response {
	if err == nil {
		return Response{Msg: successMsg}
	}

	resp := Response{
		Error: int32(apperrors.GetCode(err)),
		Msg:   apperrors.GetMessage(err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Detail = appErr.Detail
		resp.JobID = appErr.JobID
		resp.Stage = appErr.Stage
	}
	return resp
}

func ErrorResponse(c *gin.Context, err error) {
	c.JSON(http.StatusOK, FromError(err))
}

// Fail replies with an HTTP error status, for endpoints such as file
// downloads whose clients look at the status line rather than the body.
func Fail(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, FromError(err))
}
