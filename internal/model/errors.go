package model

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// NetworkError reports a failed request to the remote source: connection failure,
// timeout or non-2xx response. It is transient and safe to retry.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error: GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("network error: GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is classifies the error as unavailable.
func (e *NetworkError) Is(target error) bool { return target == errdefs.ErrUnavailable }

// DecodeError reports a remote payload that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode error: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == errdefs.ErrInvalidArgument }

// MalformedDataError reports a decoded record with a missing or ill-shaped field.
type MalformedDataError struct {
	ItemID string
	Field  string
	Reason string
}

func (e *MalformedDataError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("malformed item %q: field %s: %s", e.ItemID, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed item: field %s: %s", e.Field, e.Reason)
}

func (e *MalformedDataError) Is(target error) bool { return target == errdefs.ErrInvalidArgument }

// StorageError reports a local store I/O failure. The previously committed set is still valid.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == errdefs.ErrDataLoss }
