package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderErrorRetryable(t *testing.T) {
	assert.True(t, NewProviderError(ErrorTimeout, "viacep", "slow", nil).Retryable)
	assert.True(t, NewProviderError(ErrorProviderOutage, "viacep", "down", nil).Retryable)
	assert.True(t, NewProviderError(ErrorRateLimited, "viacep", "429", nil).Retryable)
	assert.False(t, NewProviderError(ErrorNotFound, "viacep", "none", nil).Retryable)
	assert.False(t, NewProviderError(ErrorBadData, "viacep", "junk", nil).Retryable)
}

func TestGetCategoryThroughWrapping(t *testing.T) {
	base := NewProviderError(ErrorNotFound, "nominatim", "no match", nil)
	wrapped := fmt.Errorf("geocode: %w", base)

	assert.Equal(t, ErrorNotFound, GetCategory(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsTransport(wrapped))
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
}

func TestClassifyTransport(t *testing.T) {
	assert.Equal(t, ErrorCanceled, ClassifyTransport("p", context.Canceled).Category)
	assert.Equal(t, ErrorTimeout, ClassifyTransport("p", fmt.Errorf("x: %w", context.DeadlineExceeded)).Category)
	assert.Equal(t, ErrorProviderOutage, ClassifyTransport("p", errors.New("connection refused")).Category)
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, ErrorNotFound, ClassifyStatus("p", http.StatusNotFound).Category)
	assert.Equal(t, ErrorNotFound, ClassifyStatus("p", http.StatusBadRequest).Category)
	assert.Equal(t, ErrorRateLimited, ClassifyStatus("p", http.StatusTooManyRequests).Category)
	assert.Equal(t, ErrorTimeout, ClassifyStatus("p", http.StatusGatewayTimeout).Category)
	assert.Equal(t, ErrorProviderOutage, ClassifyStatus("p", http.StatusBadGateway).Category)
	assert.Equal(t, ErrorBadData, ClassifyStatus("p", http.StatusTeapot).Category)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "solarintake-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	status, body, err := Get(context.Background(), srv.Client(), "p", srv.URL, "solarintake-test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := Get(ctx, srv.Client(), "p", srv.URL, "")
	require.Error(t, err)
	assert.Equal(t, ErrorTimeout, GetCategory(err))
	assert.True(t, IsTransport(err))
}
