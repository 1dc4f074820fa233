package composer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadProgressMonotonicEndsAtHundred(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var events []int
	err := NewUploader().Upload(context.Background(), server.URL, make([]byte, 256*1024), "image/png", func(p int) {
		events = append(events, p)
	})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, 100, events[len(events)-1])
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i], events[i-1], "progress must be non-decreasing")
	}
}

func TestUploadNon2xxResetsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var events []int
	err := NewUploader().Upload(context.Background(), server.URL, make([]byte, 1024), "image/png", func(p int) {
		events = append(events, p)
	})

	var te *TransferError
	require.ErrorAs(t, err, &te)
	require.NotEmpty(t, events)
	assert.Equal(t, ProgressIndeterminate, events[len(events)-1])
}

func TestUploadUnreachableHostFails(t *testing.T) {
	var events []int
	err := NewUploader().Upload(context.Background(), "http://127.0.0.1:1/upload", make([]byte, 16), "image/png", func(p int) {
		events = append(events, p)
	})

	var te *TransferError
	require.ErrorAs(t, err, &te)
	if len(events) > 0 {
		assert.Equal(t, ProgressIndeterminate, events[len(events)-1])
	}
}
