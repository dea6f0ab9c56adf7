// Package session orchestrates capture, detection, throttling, payload
// classification and feedback into one scan session state machine. The
// Controller is the only engine component with a public contract: the UI
// layer starts it, stops it, resets it after errors and toggles the torch.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	otelmetric "go.opentelemetry.io/otel/metric"

	"loyscan/internal/capture"
	"loyscan/internal/detect"
	"loyscan/internal/feedback"
	"loyscan/internal/grammar"
	"loyscan/internal/throttle"
	"loyscan/pkg/domain"
	"loyscan/pkg/logger"
	"loyscan/pkg/metrics"
	"loyscan/pkg/serrors"
)

// Callbacks are the caller's event hooks. Each is optional. They are invoked
// from the detection goroutine; panics inside them are recovered and routed
// into the session's own error channel rather than crashing the loop.
type Callbacks struct {
	// OnStatusChange fires on every lifecycle transition.
	OnStatusChange func(state domain.State)
	// OnSuccess delivers the decoded tuple along with the raw detection it
	// came from.
	OnSuccess func(token domain.DecodedToken, raw domain.RawDetection)
	// OnError delivers a human-readable message derived from the error kind.
	OnError func(message string)
}

// Options configure a scan session Controller.
type Options struct {
	// Capture acquires and releases the camera stream. Required.
	Capture *capture.Session
	// Decoder is the barcode decode backend. Required.
	Decoder detect.Decoder
	// Grammar classifies payloads. Defaults to a grammar with no default
	// business ID and the wall clock.
	Grammar *grammar.Grammar
	// Feedback fans out detection/success cues. Optional.
	Feedback *feedback.Dispatcher
	// Throttle suppresses duplicate detections. Defaults to the standard
	// 2 second guard.
	Throttle *throttle.Guard
	// Metrics receives engine counters when set.
	Metrics *metrics.Engine
	// Meter optionally instruments the detection loop through OpenTelemetry.
	Meter otelmetric.Meter
	// SampleInterval is forwarded to the detection loop.
	SampleInterval time.Duration
	// Facing selects the camera; defaults to the rear camera.
	Facing capture.Facing
	// Callbacks are the caller's event hooks.
	Callbacks Callbacks
}

// Controller drives one scan session through
// Idle → Initializing → Ready → Detected → Processing → Success/Error.
// All state mutation goes through the guarded transition function, so
// feedback or torch calls arriving from UI handlers mid-transition cannot
// corrupt the machine.
type Controller struct {
	id      domain.SessionID
	opts    Options
	grammar *grammar.Grammar
	guard   *throttle.Guard

	mu      sync.Mutex
	state   domain.State
	handle  *capture.Handle
	loop    *detect.Loop
	torchOn bool
}

// New constructs a Controller in the Idle state.
func New(opts Options) *Controller {
	g := opts.Grammar
	if g == nil {
		g = grammar.New(grammar.Options{})
	}
	guard := opts.Throttle
	if guard == nil {
		guard = throttle.New(throttle.Options{})
	}

	return &Controller{
		id:      domain.NewSessionID(),
		opts:    opts,
		grammar: g,
		guard:   guard,
		state:   domain.StateIdle,
	}
}

// ID returns the session identifier.
func (c *Controller) ID() domain.SessionID { return c.id }

// State returns the current lifecycle state.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Start acquires the camera and launches the detection loop. On acquisition
// failure the session lands in Error (never Ready) and the mapped hardware
// error is both surfaced through OnError and returned.
func (c *Controller) Start(ctx context.Context) error {
	if !c.transition(ctx, domain.StateInitializing, domain.StateIdle) {
		return serrors.With(serrors.ErrInternal, "session can only start from idle")
	}

	ctx = logger.WithFields(ctx, zap.String("sessionID", c.id.String()))

	handle, err := c.opts.Capture.Start(ctx, capture.Constraints{Facing: c.opts.Facing})
	if err != nil {
		logger.Error(ctx, "could not acquire camera", zap.Error(err))
		c.transition(ctx, domain.StateError, domain.StateInitializing)
		c.notifyError(HumanMessage(err))

		return err //nolint: wrapcheck
	}

	loop := detect.New(detect.Options{
		Decoder:        c.opts.Decoder,
		SampleInterval: c.opts.SampleInterval,
		Metrics:        c.opts.Metrics,
		Meter:          c.opts.Meter,
		OnFirstFrame: func() {
			c.transition(ctx, domain.StateReady, domain.StateInitializing)
		},
		OnDetection: c.handleDetection,
		OnTerminalError: func(err error) {
			c.handleStreamFailure(ctx, err)
		},
	})

	c.mu.Lock()
	// Stop may have raced Start while the camera was being acquired.
	if c.state == domain.StateIdle {
		c.mu.Unlock()
		c.opts.Capture.Stop()

		return serrors.With(serrors.ErrInternal, "session stopped during start")
	}
	c.handle = handle
	c.loop = loop
	c.mu.Unlock()

	if err := loop.Start(ctx, handle); err != nil {
		c.opts.Capture.Stop()
		c.transition(ctx, domain.StateError, domain.StateInitializing)
		c.notifyError(HumanMessage(err))

		return err //nolint: wrapcheck
	}

	logger.Info(ctx, "scan session started")

	return nil
}

// handleDetection runs the accepted-detection pipeline: throttle, feedback,
// grammar, outcome. It executes on the detection goroutine, one detection at
// a time.
func (c *Controller) handleDetection(ctx context.Context, d domain.RawDetection) {
	if c.State() != domain.StateReady {
		// awaiting reset or mid-teardown; drop silently
		return
	}

	if !c.guard.Accept(d.Text) {
		if c.opts.Metrics != nil {
			c.opts.Metrics.ThrottleSuppressed.Inc()
		}

		return
	}

	if !c.transition(ctx, domain.StateDetected, domain.StateReady) {
		return
	}
	c.opts.Feedback.Detected(ctx)
	c.transition(ctx, domain.StateProcessing, domain.StateDetected)

	begin := time.Now()
	token, err := c.grammar.Decode(d.Text)
	if c.opts.Metrics != nil {
		c.opts.Metrics.DecodeLatency.Observe(time.Since(begin).Seconds())
	}

	if err != nil {
		if c.opts.Metrics != nil {
			c.opts.Metrics.Decodes.WithLabelValues(kindLabel(err), "failure").Inc()
		}
		logger.Warn(ctx, "payload classification failed",
			zap.String("symbology", string(d.Symbology)),
			zap.Error(err))
		// the capture session stays alive so the user can rescan without
		// re-granting camera permission
		c.transition(ctx, domain.StateError, domain.StateProcessing)
		c.notifyError(HumanMessage(err))

		return
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.Decodes.WithLabelValues(string(token.SourceFormat), "success").Inc()
	}
	logger.Info(ctx, "payload decoded",
		zap.String("format", string(token.SourceFormat)),
		zap.String("symbology", string(d.Symbology)))

	c.transition(ctx, domain.StateSuccess, domain.StateProcessing)
	c.opts.Feedback.Succeeded(ctx)
	c.notifySuccess(token, d)
}

// handleStreamFailure reacts to the detection loop dying mid-session: a
// stream that stops producing frames or a frame source no decode strategy
// can consume. The session lands in Error no matter how far it got, so a
// stream that dies before its first frame does not stay in Initializing.
func (c *Controller) handleStreamFailure(ctx context.Context, err error) {
	ok := c.transition(ctx, domain.StateError,
		domain.StateInitializing, domain.StateReady, domain.StateDetected, domain.StateProcessing)
	if !ok {
		return
	}

	logger.Error(ctx, "capture stream failed", zap.Error(err))
	c.notifyError(HumanMessage(capture.ClassifyError(err)))
}

// ResetAfterError returns an errored or finished session to Ready without
// reacquiring hardware. No-op in other states.
func (c *Controller) ResetAfterError(ctx context.Context) {
	if c.transition(ctx, domain.StateReady, domain.StateError, domain.StateSuccess) {
		c.guard.Reset()
	}
}

// Stop tears the session down from any state: the detection loop is
// cancelled and the camera released in one cleanup step. Idempotent, safe
// to call even if Start never completed, and safe to call from inside the
// session's own callbacks.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	loop := c.loop
	c.loop = nil
	c.handle = nil
	c.torchOn = false
	c.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	c.opts.Capture.Stop()
	c.guard.Reset()

	if c.State() != domain.StateIdle {
		c.transition(ctx, domain.StateIdle)
		logger.Info(ctx, "scan session stopped")
	}
}

// ToggleTorch flips the torch if the live handle reports the capability;
// otherwise it is a no-op. Hardware failures are logged, never surfaced.
func (c *Controller) ToggleTorch(ctx context.Context) {
	c.mu.Lock()
	handle := c.handle
	target := !c.torchOn
	c.mu.Unlock()

	if handle == nil || !handle.HasTorch() {
		return
	}

	if err := handle.SetTorch(ctx, target); err != nil {
		logger.Warn(ctx, "could not toggle torch", zap.Error(err))

		return
	}

	c.mu.Lock()
	c.torchOn = target
	c.mu.Unlock()
}

// transition moves the machine to target if the current state is one of
// from (empty means any). The current-state check is what keeps the machine
// safe against calls arriving mid-transition from UI event handlers.
func (c *Controller) transition(ctx context.Context, to domain.State, from ...domain.State) bool {
	c.mu.Lock()
	if len(from) > 0 && !slices.Contains(from, c.state) {
		c.mu.Unlock()

		return false
	}
	c.state = to
	c.mu.Unlock()

	if c.opts.Metrics != nil {
		c.opts.Metrics.Transitions.WithLabelValues(string(to)).Inc()
	}
	logger.Debug(ctx, "session transition", zap.String("state", string(to)))
	c.notifyStatus(to)

	return true
}

// notifyStatus invokes the status callback behind a panic boundary.
func (c *Controller) notifyStatus(state domain.State) {
	cb := c.opts.Callbacks.OnStatusChange
	if cb == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error(context.Background(), "status callback panicked", zap.Any("panic", p))
		}
	}()
	cb(state)
}

// notifySuccess invokes the success callback; a panic there is converted
// into a session error rather than crashing the detection goroutine.
func (c *Controller) notifySuccess(token domain.DecodedToken, raw domain.RawDetection) {
	cb := c.opts.Callbacks.OnSuccess
	if cb == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error(context.Background(), "success callback panicked", zap.Any("panic", p))
			c.notifyError("Scan handling failed. Please try again.")
		}
	}()
	cb(token, raw)
}

// notifyError invokes the error callback behind a panic boundary.
func (c *Controller) notifyError(message string) {
	cb := c.opts.Callbacks.OnError
	if cb == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error(context.Background(), "error callback panicked", zap.Any("panic", p))
		}
	}()
	cb(message)
}

// kindLabel extracts the error kind name for metric labels.
func kindLabel(err error) string {
	var e *serrors.Error
	if errors.As(err, &e) && e.Kind() != nil {
		return e.Kind().Error()
	}

	return "UNKNOWN"
}

// HumanMessage derives the user-visible message for an engine error from its
// kind. Platform exception text is kept out of the message except where it
// adds actionable detail.
func HumanMessage(err error) string {
	switch {
	case errors.Is(err, serrors.ErrPermissionDenied):
		return "Camera permission denied. Allow camera access and try again."
	case errors.Is(err, serrors.ErrDeviceNotFound):
		return "No camera was found on this device."
	case errors.Is(err, serrors.ErrDeviceBusy):
		return "The camera is in use by another application."
	case errors.Is(err, serrors.ErrConstraintsUnsatisfiable):
		return "The camera does not support the requested capture mode."
	case errors.Is(err, serrors.ErrSecurityBlocked):
		return "Camera access is blocked by a security policy."
	case errors.Is(err, serrors.ErrInsecureContext):
		return "Scanning requires a secure (HTTPS) connection."
	case errors.Is(err, serrors.ErrCameraUnavailable):
		return "No camera is available on this device."
	case errors.Is(err, serrors.ErrInvalidURLFormat):
		return "This QR code is not a valid scan link."
	case errors.Is(err, serrors.ErrInvalidWalletJSON):
		return "This wallet pass could not be read."
	case errors.Is(err, serrors.ErrUnsupportedFormat):
		return "Unrecognized code. Please scan your loyalty QR code."
	default:
		return "Scanning failed. Please try again."
	}
}
