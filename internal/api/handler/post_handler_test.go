package handler

import (
	"Inkstone/internal/service"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPostService struct {
	service.PostService
}

func TestCreatePostMalformedBodyReturns400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPostHandler(&stubPostService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/post/create", strings.NewReader("{not-json"))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreatePost(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "参数错误")
}

func TestListPostsMalformedQueryReturns400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPostHandler(&stubPostService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/post/list?limit=abc", nil)

	h.ListPosts(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "参数错误")
}
