package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"autocut/internal/response"
	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadFile stores posted videos under the upload root and returns the
// local: refs a job can be submitted with.
func (h *Handler) UploadFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "未能获取文件 No multipart form", err))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		response.Error(c, apperrors.CodeInvalidParams, "未上传任何文件 No file uploaded")
		return
	}

	root := preferredUploadRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeFileWriteError, "创建上传目录失败 Failed to create upload dir", err))
		return
	}

	var savedFiles []string
	for _, file := range files {
		name := uuid.NewString()[:8] + "_" + util.SanitizePathName(filepath.Base(file.Filename))
		savePath := filepath.Join(root, name)
		if err := c.SaveUploadedFile(file, savePath); err != nil {
			log.GetLogger().Error("UploadFile SaveUploadedFile err", zap.String("file", file.Filename), zap.Error(err))
			response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "文件保存失败 Failed to save file", file.Filename, err))
			return
		}
		abs, err := filepath.Abs(savePath)
		if err != nil {
			abs = savePath
		}
		savedFiles = append(savedFiles, "local:"+abs)
	}

	response.Success(c, gin.H{"file_path": savedFiles})
}

func (h *Handler) DownloadFile(c *gin.Context) {
	outputBaseDir := ""
	if h.Service != nil {
		outputBaseDir = h.Service.Options.OutputBaseDir
	}
	localFilePath, ok := resolveDownloadPath(fileRoots(outputBaseDir), c.Param("filepath"))
	if !ok {
		response.Fail(c, http.StatusForbidden, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "非法路径 Invalid path", c.Param("filepath"), nil))
		return
	}
	info, err := os.Stat(localFilePath)
	if localFilePath == "" || err != nil || info.IsDir() {
		response.Fail(c, http.StatusNotFound, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "文件不存在 File not found", c.Param("filepath"), err))
		return
	}
	c.FileAttachment(localFilePath, filepath.Base(localFilePath))
}
