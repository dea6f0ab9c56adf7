package capture

import (
	"context"
	"errors"
	"image"
)

// Facing selects the camera direction requested from the provider.
type Facing string

const (
	// FacingEnvironment is the rear camera, the default for scanning.
	FacingEnvironment Facing = "environment"
	// FacingUser is the front camera.
	FacingUser Facing = "user"
)

// Constraints describe the camera stream to acquire.
type Constraints struct {
	Facing Facing
}

// ErrUnsupported is the capability-probe sentinel: frame and decoder
// operations return it (possibly wrapped) when the platform cannot perform
// them, and callers fall through to the next strategy.
var ErrUnsupported = errors.New("operation unsupported by platform")

// ErrClosed is returned when an operation is attempted on a released handle.
var ErrClosed = errors.New("capture handle closed")

//go:generate mockgen -package mockcapture -source=interface.go -destination=mock/mockcapture.go *

// Provider abstracts the platform camera APIs. Concrete implementations wrap
// whatever the host exposes; tests use mocks.
type Provider interface {
	// Secure reports whether the execution context is permitted camera
	// access (a secure origin, or a host the deployment trusts).
	Secure() bool
	// Open acquires a live camera stream matching the constraints. Failures
	// should carry a *PlatformError so they can be classified into the
	// hardware error taxonomy.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is one live camera stream with optional torch control.
type Stream interface {
	// Frame returns the most recent frame available on the stream.
	Frame(ctx context.Context) (Frame, error)
	// TorchSupported reports whether the underlying track exposes a torch
	// control. Introspection may fail on some platforms.
	TorchSupported() (bool, error)
	// SetTorch switches the torch on or off.
	SetTorch(ctx context.Context, on bool) error
	// Close releases all underlying hardware tracks.
	Close() error
}

// Frame is one sampled camera frame. Bitmap and Draw are capability probes:
// either may return ErrUnsupported, in which case the detection loop falls
// back to the next frame-source strategy.
type Frame interface {
	// Bounds returns the pixel dimensions of the frame.
	Bounds() image.Rectangle
	// Bitmap decodes the frame into an image without an intermediate buffer.
	Bitmap() (image.Image, error)
	// Draw renders the frame into the caller-provided raster buffer.
	Draw(dst *image.RGBA) error
}
