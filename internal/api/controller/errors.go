package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/containerd/errdefs"
)

// statusFor maps a refresh error to an HTTP status.
// Cancellation is checked first: a fetch aborted by the deadline is also a network error.
func statusFor(err error) int {
	switch {
	case errdefs.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errdefs.IsDataLoss(err):
		return http.StatusInternalServerError
	case errdefs.IsUnavailable(err), errdefs.IsInvalidArgument(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
