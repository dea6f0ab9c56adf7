// Package detect runs the frame sampling loop: it pulls frames from the
// capture stream at a bounded rate, feeds them to the decode backend and
// forwards raw detections to the session controller one at a time.
package detect

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	otelmetric "go.opentelemetry.io/otel/metric"

	"loyscan/internal/capture"
	"loyscan/pkg/domain"
	"loyscan/pkg/logger"
	"loyscan/pkg/metrics"
	"loyscan/pkg/serrors"
)

// DefaultSampleInterval bounds sampling to 2 frames per second.
const DefaultSampleInterval = 500 * time.Millisecond

// Options configure a detection Loop.
type Options struct {
	// Decoder is the barcode decode backend. Required.
	Decoder Decoder
	// SampleInterval overrides DefaultSampleInterval when positive.
	SampleInterval time.Duration
	// Metrics receives loop counters when set.
	Metrics *metrics.Engine
	// Meter optionally instruments frame sampling through OpenTelemetry.
	Meter otelmetric.Meter
	// OnFirstFrame is invoked once, after the first frame has been decoded,
	// whether or not it contained a detection.
	OnFirstFrame func()
	// OnDetection is invoked for each raw detection, strictly one at a time:
	// the loop does not sample another frame until the callback returns.
	// Required.
	OnDetection func(ctx context.Context, d domain.RawDetection)
	// OnTerminalError is invoked at most once, when the loop terminates
	// because the stream failed or no frame-source strategy is usable. It is
	// not invoked for a stream closed by Stop.
	OnTerminalError func(err error)
}

// sampler is a resolved frame-source strategy.
type sampler func(ctx context.Context, frame capture.Frame) ([]domain.RawDetection, error)

// Loop is a cooperatively scheduled, self-rescheduling sampling task. One
// Loop serves one session; it is started once and stopped once.
type Loop struct {
	opts          Options
	interval      time.Duration
	framesSampled otelmetric.Int64Counter

	mu          sync.Mutex
	alive       bool
	dispatching bool
	cancel      context.CancelFunc
	done        chan struct{}

	// sample is the frame-source strategy, probed once on the first frame:
	// direct frame decode, then bitmap conversion, then a drawn raster buffer.
	sample    sampler
	raster    *image.RGBA
	firstOnce sync.Once
}

// New constructs a Loop from the provided options.
func New(opts Options) *Loop {
	interval := opts.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}

	l := &Loop{opts: opts, interval: interval}
	if opts.Meter != nil {
		c, err := opts.Meter.Int64Counter("loyscan.frames.sampled",
			otelmetric.WithDescription("Frames pulled from the capture stream."))
		if err == nil {
			l.framesSampled = c
		}
	}

	return l
}

// Start launches the sampling task against the given frame source. It fails
// if the loop is missing its decoder or callback, or is already running.
func (l *Loop) Start(ctx context.Context, src FrameSource) error {
	if l.opts.Decoder == nil || l.opts.OnDetection == nil {
		return serrors.With(serrors.ErrInternal, "detection loop requires a decoder and a detection callback")
	}

	l.mu.Lock()
	if l.alive {
		l.mu.Unlock()

		return serrors.With(serrors.ErrInternal, "detection loop already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.alive = true
	l.cancel = cancel
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.run(runCtx, src)

	return nil
}

// Stop cancels the sampling task. No new callback starts after Stop
// returns; when no callback is in flight Stop also waits for the task to
// finish. A callback that is mid-flight may itself be the caller of Stop,
// so Stop never waits on one. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()

		return
	}
	l.alive = false
	cancel := l.cancel
	done := l.done
	dispatching := l.dispatching
	l.mu.Unlock()

	cancel()
	if !dispatching {
		<-done
	}
}

// dispatch runs a callback on the loop goroutine unless the loop has been
// stopped. The dispatching flag is what lets Stop avoid blocking on the very
// callback that is calling it. Returns false when the loop should terminate
// instead.
func (l *Loop) dispatch(fn func()) bool {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()

		return false
	}
	l.dispatching = true
	l.mu.Unlock()

	fn()

	l.mu.Lock()
	l.dispatching = false
	l.mu.Unlock()

	return true
}

// isAlive is the liveness flag checked at the top of every iteration and
// between detections.
func (l *Loop) isAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.alive
}

// run is the loop body: wait out the sampling delay, check liveness, process
// one frame, repeat. Never a tight synchronous loop.
func (l *Loop) run(ctx context.Context, src FrameSource) {
	defer close(l.done)

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !l.isAlive() {
			return
		}
		if !l.step(ctx, src) {
			return
		}
		timer.Reset(l.interval)
	}
}

// step samples and processes a single frame. It returns false when the loop
// should terminate.
func (l *Loop) step(ctx context.Context, src FrameSource) bool {
	frame, err := src.Frame(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrClosed) || ctx.Err() != nil {
			return false
		}
		if isHardwareFailure(err) {
			logger.Error(ctx, "capture stream failed", zap.Error(err))
			l.fail(err)

			return false
		}
		// transient: keep sampling
		logger.Debug(ctx, "could not sample frame", zap.Error(err))

		return true
	}

	if l.opts.Metrics != nil {
		l.opts.Metrics.FramesSampled.Inc()
	}
	if l.framesSampled != nil {
		l.framesSampled.Add(ctx, 1)
	}

	detections, err := l.decode(ctx, frame)
	if err != nil {
		if errors.Is(err, capture.ErrUnsupported) {
			logger.Error(ctx, "no usable frame source strategy", zap.Error(err))
			l.fail(err)

			return false
		}
		logger.Debug(ctx, "frame decode failed", zap.Error(err))

		return true
	}

	if l.opts.OnFirstFrame != nil {
		if !l.dispatch(func() { l.firstOnce.Do(l.opts.OnFirstFrame) }) {
			return false
		}
	}

	for _, d := range detections {
		if ctx.Err() != nil {
			return false
		}
		delivered := l.dispatch(func() {
			if l.opts.Metrics != nil {
				l.opts.Metrics.Detections.WithLabelValues(string(d.Symbology)).Inc()
			}
			l.opts.OnDetection(ctx, d)
		})
		if !delivered {
			return false
		}
	}

	return true
}

// fail delivers the terminal error, unless the loop was stopped first.
func (l *Loop) fail(err error) {
	if l.opts.OnTerminalError == nil {
		return
	}
	l.dispatch(func() { l.opts.OnTerminalError(err) })
}

// isHardwareFailure reports whether a frame error means the stream is dead
// rather than a single frame being bad. Platform exceptions and mapped
// hardware kinds terminate the loop; anything else is retried on the next
// sample.
func isHardwareFailure(err error) bool {
	var platformErr *capture.PlatformError

	return serrors.IsHardware(err) || errors.As(err, &platformErr)
}

// decode applies the resolved frame-source strategy, probing for one on the
// first frame. Probing is not repeated per frame: once a strategy succeeds
// it is pinned for the life of the loop.
func (l *Loop) decode(ctx context.Context, frame capture.Frame) ([]domain.RawDetection, error) {
	if l.sample != nil {
		return l.sample(ctx, frame)
	}

	// direct detection on the platform frame object
	detections, err := l.opts.Decoder.DecodeFrame(ctx, frame)
	if err == nil {
		l.sample = l.opts.Decoder.DecodeFrame

		return detections, nil
	}
	if !errors.Is(err, capture.ErrUnsupported) {
		return nil, err //nolint: wrapcheck
	}

	// intermediate bitmap conversion
	img, err := frame.Bitmap()
	if err == nil {
		l.sample = l.sampleBitmap

		return l.opts.Decoder.DecodeImage(ctx, img) //nolint: wrapcheck
	}
	if !errors.Is(err, capture.ErrUnsupported) {
		return nil, err //nolint: wrapcheck
	}

	// manually drawn raster buffer
	detections, err = l.sampleRaster(ctx, frame)
	if err != nil {
		return nil, err
	}
	l.sample = l.sampleRaster

	return detections, nil
}

// sampleBitmap converts the frame to a bitmap and decodes it.
func (l *Loop) sampleBitmap(ctx context.Context, frame capture.Frame) ([]domain.RawDetection, error) {
	img, err := frame.Bitmap()
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return l.opts.Decoder.DecodeImage(ctx, img) //nolint: wrapcheck
}

// sampleRaster draws the frame into a reused raster buffer and decodes it.
func (l *Loop) sampleRaster(ctx context.Context, frame capture.Frame) ([]domain.RawDetection, error) {
	bounds := frame.Bounds()
	if l.raster == nil || l.raster.Bounds() != bounds {
		l.raster = image.NewRGBA(bounds)
	}
	if err := frame.Draw(l.raster); err != nil {
		return nil, err //nolint: wrapcheck
	}

	return l.opts.Decoder.DecodeImage(ctx, l.raster) //nolint: wrapcheck
}
