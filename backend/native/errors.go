//go:build !nogpu

package native

import "errors"

// Package errors for the wgpu backend.
var (
	// ErrNilHALDevice is returned when no HAL device or queue is supplied.
	ErrNilHALDevice = errors.New("native: HAL device or queue is nil")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNoHALProvider = errors.New("native: provider does not expose HAL device and queue")
)
