package dashboard

import (
	"errors"

	"github.com/irisdrone/bladealert/internal/alertsource"
)

var (
	// ErrMissingTimeRange is returned when a historical fetch lacks a start
	// or end bound. The coordinator has already reverted to live mode.
	ErrMissingTimeRange = errors.New("historical search requires both start and end time")

	// ErrEmptyDirectory is returned when the camera listing holds no ids.
	// Callers fall back to DefaultCameras.
	ErrEmptyDirectory = errors.New("camera listing returned no cameras")
)

// NetworkError is the transport failure type reported by the alert source.
type NetworkError = alertsource.NetworkError

// IsNetworkError reports whether err wraps a transport failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
