package backend

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestSubmitSucceedsAfterTransientServiceUnavailable(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"text":"the answer"}}`))
	}))
	defer server.Close()

	client := New(config.BackendConfig{Endpoint: server.URL, VerifySSL: true}, testLogger())

	text, err := client.Submit(context.Background(), models.Question{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "the answer", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSubmitFailsAfterExhaustingRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(config.BackendConfig{Endpoint: server.URL, VerifySSL: true}, testLogger())

	_, err := client.Submit(context.Background(), models.Question{Message: "hello"})
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeRequestFailed, appErr.Code)
	assert.Equal(t, apperrors.RequestFailedMessage, appErr.Message)
}

func TestSubmitMissingDataFieldsReturnEmptyString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(config.BackendConfig{Endpoint: server.URL, VerifySSL: true}, testLogger())

	text, err := client.Submit(context.Background(), models.Question{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}
