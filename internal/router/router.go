package router

import (
	"net/http"
	"os"

	"autocut/internal/handler"
	"autocut/log"

	"github.com/gin-gonic/gin"
)

func SetupRouter(r *gin.Engine, hdl *handler.Handler) {
	api := r.Group("/api")
	{
		api.POST("/jobs", hdl.SubmitJob)
		api.GET("/jobs", hdl.GetJobHistory)
		api.GET("/jobs/:jobId", hdl.GetJob)
		api.DELETE("/jobs/:jobId", hdl.DeleteJob)
		api.POST("/jobs/:jobId/retry", hdl.RetryJob)
		api.POST("/jobs/:jobId/cancel", hdl.CancelJob)
		api.GET("/jobs/:jobId/events", hdl.JobEvents)
		api.POST("/file", hdl.UploadFile)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
		api.GET("/config", hdl.GetConfig)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if _, err := os.Stat("static"); err == nil {
		log.GetLogger().Info("Using local static directory")
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/static")
		})
		r.Static("/static", "static")
	}
}
