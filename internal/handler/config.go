package handler

import (
	"autocut/config"
	"autocut/internal/response"

	"github.com/gin-gonic/gin"
)

func mask(secret string) string {
	if len(secret) <= 6 {
		return secret
	}
	return secret[:3] + "***" + secret[len(secret)-3:]
}

// GetConfig returns the running configuration with credentials masked.
func (h *Handler) GetConfig(c *gin.Context) {
	conf := config.Conf
	conf.Llm.ApiKey = mask(conf.Llm.ApiKey)
	conf.Translate.ApiKey = mask(conf.Translate.ApiKey)
	conf.Oss.AccessKeyId = mask(conf.Oss.AccessKeyId)
	conf.Oss.AccessKeySecret = mask(conf.Oss.AccessKeySecret)
	conf.Queue.RedisPassword = mask(conf.Queue.RedisPassword)
	response.Success(c, conf)
}
