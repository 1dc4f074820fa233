package response

import (
	"Inkstone/internal/api/dto"
	"Inkstone/internal/service"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fn func(c *gin.Context)) (*httptest.ResponseRecorder, dto.Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body dto.Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestSuccessEnvelope(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		Success(c, gin.H{"x": 1})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Ok, body.Code)
	assert.Equal(t, "success", body.Message)
}

func TestSuccessCreatedUses201(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		SuccessCreated(c, gin.H{"slug": "hello-world"})
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, Created, body.Code)
}

func TestErrorMapsBusinessCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrTitleRequired, http.StatusBadRequest},
		{service.ErrSlugExist, http.StatusBadRequest},
		{service.ForbiddenError, http.StatusForbidden},
		{service.ErrPostNotFound, http.StatusNotFound},
		{service.UnExpectedError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w, body := record(func(c *gin.Context) {
			Error(c, tc.err)
		})
		require.Equal(t, tc.status, w.Code, "err=%v", tc.err)
		assert.Equal(t, tc.status, body.Code)
		assert.Equal(t, tc.err.Error(), body.Message)
	}
}

func TestErrorFallsBackTo500ForUnknown(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		Error(c, assert.AnError)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, InternalServerError, body.Code)
}
