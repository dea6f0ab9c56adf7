package feedback

import (
	"context"
	"time"

	"go.uber.org/zap"

	"loyscan/pkg/logger"
)

// ConsoleAudio is an AudioSink for hosts without audio hardware: it logs the
// tone instead of playing it. Used by the CLI runner and demos.
type ConsoleAudio struct{}

// Play implements AudioSink.
func (ConsoleAudio) Play(ctx context.Context, tone Tone) error {
	logger.Info(ctx, "beep",
		zap.Float64("frequencyHz", tone.FrequencyHz),
		zap.Duration("duration", tone.Duration))

	return nil
}

// ConsoleHaptic is a HapticSink that logs pulses instead of vibrating.
type ConsoleHaptic struct{}

// Vibrate implements HapticSink.
func (ConsoleHaptic) Vibrate(ctx context.Context, d time.Duration) error {
	logger.Info(ctx, "buzz", zap.Duration("duration", d))

	return nil
}
