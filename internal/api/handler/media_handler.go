package handler

import (
	"Inkstone/internal/api/dto"
	"Inkstone/internal/pkg/response"
	"Inkstone/internal/service"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	mediaSvc service.MediaService
}

func NewMediaHandler(mediaSvc service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
	}
}

// PresignUpload 为直传签发预签名 PUT/GET 地址
func (s *MediaHandler) PresignUpload(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.PresignDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.mediaSvc.PresignUpload(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PresignRetrieval 为已发布对象签发临时读取地址
func (s *MediaHandler) PresignRetrieval(c *gin.Context) {
	var req dto.RetrieveDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.mediaSvc.PresignRetrieval(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
