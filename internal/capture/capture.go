// Package capture owns the camera stream lifecycle: acquisition, torch
// control and release. It maps platform acquisition failures into the
// engine's hardware error taxonomy and guarantees that at most one handle is
// live per session.
package capture

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"loyscan/pkg/logger"
	"loyscan/pkg/serrors"
)

// Platform error names reported by camera backends. The set mirrors the
// acquisition failures wallet scanners see in the field.
const (
	PlatformNotAllowed       = "NotAllowedError"
	PlatformPermissionDenied = "PermissionDeniedError"
	PlatformNotFound         = "NotFoundError"
	PlatformDevicesNotFound  = "DevicesNotFoundError"
	PlatformNotReadable      = "NotReadableError"
	PlatformTrackStart       = "TrackStartError"
	PlatformOverconstrained  = "OverconstrainedError"
	PlatformConstraint       = "ConstraintNotSatisfiedError"
	PlatformSecurity         = "SecurityError"
)

// PlatformError preserves the platform-level error name alongside its cause
// so acquisition failures can be classified without string matching on
// free-form messages.
type PlatformError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	if e.Err != nil {
		return e.Name + ": " + e.Err.Error()
	}

	return e.Name
}

// Unwrap returns the underlying cause.
func (e *PlatformError) Unwrap() error { return e.Err }

// Options configure a capture Session.
type Options struct {
	// Provider supplies camera streams. A nil provider means the platform
	// exposes no camera APIs.
	Provider Provider
	// AllowInsecure permits capture on hosts the provider reports as
	// insecure (local development).
	AllowInsecure bool
}

// Session acquires and releases camera streams. It enforces the invariant
// that at most one Handle is live at a time.
type Session struct {
	opts Options

	mu     sync.Mutex
	handle *Handle
}

// NewSession constructs a Session from the provided options.
func NewSession(opts Options) *Session {
	return &Session{opts: opts}
}

// Start requests camera access and returns an exclusive handle to the live
// stream. Failures are mapped into the hardware error taxonomy.
func (s *Session) Start(ctx context.Context, c Constraints) (*Handle, error) {
	if s.opts.Provider == nil {
		return nil, serrors.With(serrors.ErrCameraUnavailable, "no camera APIs on this platform")
	}
	if !s.opts.Provider.Secure() && !s.opts.AllowInsecure {
		return nil, serrors.With(serrors.ErrInsecureContext, "camera access requires a secure context")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && !s.handle.Closed() {
		return nil, serrors.With(serrors.ErrDeviceBusy, "capture already started, stop the active session first")
	}

	if c.Facing == "" {
		c.Facing = FacingEnvironment
	}

	stream, err := s.opts.Provider.Open(ctx, c)
	if err != nil {
		return nil, classifyOpenError(err)
	}

	s.handle = &Handle{stream: stream}

	return s.handle, nil
}

// Stop releases the active handle, if any. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle != nil {
		handle.Close()
	}
}

// classifyOpenError translates a provider acquisition failure into the
// hardware error taxonomy. Unknown failures land on ErrCameraUnavailable.
func classifyOpenError(err error) error {
	var pe *PlatformError
	if !errors.As(err, &pe) {
		return serrors.Wrap(serrors.ErrCameraUnavailable, err, "could not open camera stream")
	}

	return ClassifyError(err)
}

// ClassifyError maps a platform exception to the hardware error taxonomy,
// for failures surfacing after acquisition (a stream dying mid-session).
// Errors that already carry a hardware kind, and errors that are not
// platform exceptions, pass through unchanged.
func ClassifyError(err error) error {
	if serrors.IsHardware(err) {
		return err
	}

	var pe *PlatformError
	if !errors.As(err, &pe) {
		return err
	}

	switch pe.Name {
	case PlatformNotAllowed, PlatformPermissionDenied:
		return serrors.Wrap(serrors.ErrPermissionDenied, err, "camera permission denied")
	case PlatformNotFound, PlatformDevicesNotFound:
		return serrors.Wrap(serrors.ErrDeviceNotFound, err, "no camera device found")
	case PlatformNotReadable, PlatformTrackStart:
		// the platform detail here is actionable ("in use by another application")
		return serrors.Wrap(serrors.ErrDeviceBusy, err, "camera is not readable")
	case PlatformOverconstrained, PlatformConstraint:
		return serrors.Wrap(serrors.ErrConstraintsUnsatisfiable, err, "camera constraints cannot be satisfied")
	case PlatformSecurity:
		return serrors.Wrap(serrors.ErrSecurityBlocked, err, "camera blocked by security policy")
	default:
		return serrors.Wrap(serrors.ErrCameraUnavailable, err, "could not open camera stream")
	}
}

// Handle is the exclusive ownership token for a live camera stream. No other
// component may hold a reference to the underlying stream.
type Handle struct {
	mu     sync.Mutex
	stream Stream
	closed bool
}

// Frame returns the most recent frame from the stream.
func (h *Handle) Frame(ctx context.Context) (Frame, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()

		return nil, ErrClosed
	}
	stream := h.stream
	h.mu.Unlock()

	return stream.Frame(ctx) //nolint: wrapcheck
}

// HasTorch reports torch capability. Any introspection failure, including
// a closed handle, reads as "no torch".
func (h *Handle) HasTorch() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	ok, err := h.stream.TorchSupported()
	if err != nil {
		return false
	}

	return ok
}

// SetTorch switches the torch. Best effort: callers log the returned error
// instead of propagating it, torch failures never abort scanning.
func (h *Handle) SetTorch(ctx context.Context, on bool) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()

		return ErrClosed
	}
	stream := h.stream
	h.mu.Unlock()

	return stream.SetTorch(ctx, on) //nolint: wrapcheck
}

// Closed reports whether the handle has been released.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.closed
}

// Close releases the underlying hardware tracks and invalidates the handle.
// Idempotent: closing an already-closed handle is a no-op.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()

		return
	}
	h.closed = true
	stream := h.stream
	h.mu.Unlock()

	if err := stream.Close(); err != nil {
		logger.Warn(context.Background(), "could not close camera stream", zap.Error(err))
	}
}
