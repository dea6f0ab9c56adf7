// Package feedback emits best-effort user feedback on detections and
// successful decodes: a short audio tone and a haptic pulse, each behind its
// own error boundary. Feedback can fail on plenty of devices (no speaker, no
// vibration motor, muted context) and none of those failures may ever reach
// the scanning state machine.
package feedback

import (
	"context"
	"time"

	"go.uber.org/zap"

	"loyscan/pkg/logger"
)

// Tone describes an audio cue.
type Tone struct {
	FrequencyHz float64
	Duration    time.Duration
}

// Cue parameters. Detection and success are deliberately distinguishable.
var (
	// DetectionTone is the short high beep played when a barcode is spotted.
	DetectionTone = Tone{FrequencyHz: 800, Duration: 200 * time.Millisecond} //nolint: gochecknoglobals
	// SuccessTone is the lower, longer tone played when decoding succeeds.
	SuccessTone = Tone{FrequencyHz: 523, Duration: 500 * time.Millisecond} //nolint: gochecknoglobals
)

// DetectionPulse is the vibration length on detection.
const DetectionPulse = 200 * time.Millisecond

// AudioSink plays tones. Implementations wrap whatever audio APIs the
// platform has; a nil sink means no audio capability.
type AudioSink interface {
	Play(ctx context.Context, tone Tone) error
}

// HapticSink drives the vibration motor, if any.
type HapticSink interface {
	Vibrate(ctx context.Context, d time.Duration) error
}

// Dispatcher fans a feedback event out to the available sinks. All calls are
// fire-and-forget: failures are logged and swallowed.
type Dispatcher struct {
	audio  AudioSink
	haptic HapticSink
}

// New constructs a Dispatcher. Either sink may be nil when the capability is
// absent.
func New(audio AudioSink, haptic HapticSink) *Dispatcher {
	return &Dispatcher{audio: audio, haptic: haptic}
}

// Detected signals that a barcode was spotted: short tone plus a pulse.
func (d *Dispatcher) Detected(ctx context.Context) {
	d.play(ctx, DetectionTone)
	d.vibrate(ctx, DetectionPulse)
}

// Succeeded signals that a payload decoded successfully.
func (d *Dispatcher) Succeeded(ctx context.Context) {
	d.play(ctx, SuccessTone)
}

// play is the audio error boundary: sink errors and panics are logged, never
// propagated.
func (d *Dispatcher) play(ctx context.Context, tone Tone) {
	if d == nil || d.audio == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn(ctx, "audio feedback panicked", zap.Any("panic", p))
		}
	}()

	if err := d.audio.Play(ctx, tone); err != nil {
		logger.Warn(ctx, "audio feedback failed", zap.Float64("frequencyHz", tone.FrequencyHz), zap.Error(err))
	}
}

// vibrate is the haptic error boundary.
func (d *Dispatcher) vibrate(ctx context.Context, dur time.Duration) {
	if d == nil || d.haptic == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn(ctx, "haptic feedback panicked", zap.Any("panic", p))
		}
	}()

	if err := d.haptic.Vibrate(ctx, dur); err != nil {
		logger.Warn(ctx, "haptic feedback failed", zap.Error(err))
	}
}
