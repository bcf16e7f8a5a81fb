package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError_RateLimitByStatus(t *testing.T) {
	err := classifyHTTPError(429, `{"error":"too many requests"}`)
	assert.Equal(t, ErrRateLimit, err.Kind)
}

func TestClassifyHTTPError_RateLimitBySubstring(t *testing.T) {
	err := classifyHTTPError(400, `{"error":"rate limit exceeded"}`)
	assert.Equal(t, ErrRateLimit, err.Kind)
}

func TestClassifyHTTPError_TimeoutByStatus(t *testing.T) {
	err := classifyHTTPError(408, "request timeout")
	assert.Equal(t, ErrTimeout, err.Kind)
}

func TestClassifyHTTPError_TimeoutBySubstring(t *testing.T) {
	err := classifyHTTPError(500, "upstream timed out")
	assert.Equal(t, ErrTimeout, err.Kind)
}

func TestClassifyHTTPError_GenericClientError(t *testing.T) {
	err := classifyHTTPError(401, "invalid api key")
	assert.Equal(t, ErrAPIError, err.Kind)
}

func TestClassifyHTTPError_ServerError(t *testing.T) {
	err := classifyHTTPError(503, "service unavailable")
	assert.Equal(t, ErrAPIError, err.Kind)
}

func TestClassifyTransportError_DeadlineExceeded(t *testing.T) {
	err := classifyTransportError(errors.New("context deadline exceeded"))
	assert.Equal(t, ErrTimeout, err.Kind)
}

func TestClassifyTransportError_Other(t *testing.T) {
	err := classifyTransportError(errors.New("connection refused"))
	assert.Equal(t, ErrAPIError, err.Kind)
}
