// Package upstream holds the failure taxonomy shared by every external
// collaborator (LLM completion, image generation). Callers branch on these
// sentinels with errors.Is; anything unrecognized collapses to unavailable.
package upstream

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized      = errors.New("upstream rejected credentials")
	ErrRateLimited       = errors.New("upstream rate limit exceeded")
	ErrUnavailable       = errors.New("upstream unavailable")
	ErrMalformedResponse = errors.New("upstream returned malformed response")
)

// HTTPStatus maps a collaborator failure to the status the relay reports.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Classify folds a raw collaborator error into the taxonomy. Timeouts and
// cancellations count as unavailable. SDK errors rarely expose typed status
// codes, so the fallback sniffs the message.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformedResponse) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return ErrUnauthorized
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return ErrRateLimited
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "unexpected response") || strings.Contains(msg, "decode"):
		return ErrMalformedResponse
	default:
		return ErrUnavailable
	}
}
