package feedback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loyscan/internal/feedback"
)

// recordingAudio captures played tones and optionally fails or panics.
type recordingAudio struct {
	tones []feedback.Tone
	err   error
	panics bool
}

func (a *recordingAudio) Play(_ context.Context, tone feedback.Tone) error {
	if a.panics {
		panic("audio backend gone")
	}
	a.tones = append(a.tones, tone)

	return a.err
}

type recordingHaptic struct {
	pulses []time.Duration
	err    error
}

func (h *recordingHaptic) Vibrate(_ context.Context, d time.Duration) error {
	h.pulses = append(h.pulses, d)

	return h.err
}

func TestDetected_FiresToneAndPulse(t *testing.T) {
	audio := &recordingAudio{}
	haptic := &recordingHaptic{}
	d := feedback.New(audio, haptic)

	d.Detected(context.Background())

	require.Equal(t, []feedback.Tone{feedback.DetectionTone}, audio.tones)
	require.Equal(t, []time.Duration{feedback.DetectionPulse}, haptic.pulses)
}

func TestSucceeded_FiresSuccessTone(t *testing.T) {
	audio := &recordingAudio{}
	d := feedback.New(audio, nil)

	d.Succeeded(context.Background())

	require.Equal(t, []feedback.Tone{feedback.SuccessTone}, audio.tones)
}

func TestTonesAreDistinguishable(t *testing.T) {
	require.NotEqual(t, feedback.DetectionTone, feedback.SuccessTone)
}

func TestSinkFailuresNeverPropagate(t *testing.T) {
	audio := &recordingAudio{err: errors.New("no audio context")}
	haptic := &recordingHaptic{err: errors.New("no vibration motor")}
	d := feedback.New(audio, haptic)

	require.NotPanics(t, func() {
		d.Detected(context.Background())
		d.Succeeded(context.Background())
	})
}

func TestSinkPanicsAreContained(t *testing.T) {
	d := feedback.New(&recordingAudio{panics: true}, &recordingHaptic{})

	require.NotPanics(t, func() {
		d.Detected(context.Background())
	})
}

func TestNilSinksAreNoops(t *testing.T) {
	d := feedback.New(nil, nil)

	require.NotPanics(t, func() {
		d.Detected(context.Background())
		d.Succeeded(context.Background())
	})
}
