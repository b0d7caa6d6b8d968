package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_devbytes/internal/model"
	"github.com/containerd/errdefs"
)

// ErrRefreshInProgress is returned under the reject policy when a refresh is already running.
// It is a conflict, not a failure of the cache.
var ErrRefreshInProgress = fmt.Errorf("refresh already in progress: %w", errdefs.ErrConflict)

// RefreshError reports a failed refresh and the stage it failed in.
// The committed set is unchanged whenever a RefreshError is returned.
type RefreshError struct {
	Stage State
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed while %s: %v", e.Stage, e.Cause)
}

func (e *RefreshError) Unwrap() error { return e.Cause }

// Failure kinds returned by Kind.
const (
	KindNone       = ""
	KindNetwork    = "network"
	KindDecode     = "decode"
	KindMalformed  = "malformed"
	KindStorage    = "storage"
	KindCancelled  = "cancelled"
	KindInProgress = "in_progress"
	KindUnknown    = "unknown"
)

// Kind names the cause class of a refresh error, for logging and telemetry.
func Kind(err error) string {
	if err == nil {
		return KindNone
	}

	var (
		netErr       *model.NetworkError
		decErr       *model.DecodeError
		malformedErr *model.MalformedDataError
		storageErr   *model.StorageError
	)
	switch {
	case errors.Is(err, ErrRefreshInProgress):
		return KindInProgress
	case errors.As(err, &storageErr):
		return KindStorage
	case errors.As(err, &malformedErr):
		return KindMalformed
	case errors.As(err, &decErr):
		return KindDecode
	// A network error caused by cancellation is still a cancellation.
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindUnknown
	}
}
