package handler

import (
	"Inkstone/internal/api/dto"
	"Inkstone/internal/pkg/consts"
	"Inkstone/internal/pkg/response"
	"Inkstone/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postSvc service.PostService
}

func NewPostHandler(postSvc service.PostService) *PostHandler {
	return &PostHandler{
		postSvc: postSvc,
	}
}

func (s *PostHandler) CreatePost(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.PostBaseDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	post, err := s.postSvc.CreatePost(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessCreated(c, post)
}

func (s *PostHandler) GetPostBySlug(c *gin.Context) {
	slug := c.Param("slug")

	post, err := s.postSvc.GetPostBySlug(c.Request.Context(), slug)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, post)
}

func (s *PostHandler) ListPosts(c *gin.Context) {
	var listDTO dto.PostListDTO
	if err := c.ShouldBindQuery(&listDTO); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.postSvc.ListPosts(c.Request.Context(), &listDTO)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func (s *PostHandler) UpdatePostContent(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID := c.Param("post_id")

	var baseDTO dto.PostBaseDTO
	if err := c.ShouldBindJSON(&baseDTO); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	post, err := s.postSvc.UpdatePostContent(c.Request.Context(), userID, isAdmin(c), postID, &baseDTO)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, post)
}

func (s *PostHandler) DeletePost(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID := c.Param("post_id")

	if err := s.postSvc.DeletePost(c.Request.Context(), userID, isAdmin(c), postID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

func isAdmin(c *gin.Context) bool {
	for _, role := range c.GetStringSlice("roles") {
		if role == consts.RoleAdmin {
			return true
		}
	}
	return false
}
