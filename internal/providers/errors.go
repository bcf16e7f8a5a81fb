package providers

import "strings"

// classifyHTTPError maps an upstream HTTP status and response body to the
// §7 error taxonomy, per the design notes' "small mapping with a
// text-substring fallback for providers that don't distinguish timeout from
// rate-limit in the type system".
func classifyHTTPError(statusCode int, body string) *AdapterError {
	lower := strings.ToLower(body)

	switch {
	case statusCode == 429:
		return &AdapterError{Kind: ErrRateLimit, Message: body}
	case statusCode == 408 || strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return &AdapterError{Kind: ErrTimeout, Message: body}
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		return &AdapterError{Kind: ErrRateLimit, Message: body}
	case statusCode >= 400 && statusCode < 500:
		return &AdapterError{Kind: ErrAPIError, Message: body}
	default:
		return &AdapterError{Kind: ErrAPIError, Message: body}
	}
}

// classifyTransportError maps a Go transport-level error (context deadline,
// connection refused, etc) to the taxonomy.
func classifyTransportError(err error) *AdapterError {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "timeout") {
		return &AdapterError{Kind: ErrTimeout, Message: msg}
	}
	return &AdapterError{Kind: ErrAPIError, Message: msg}
}
