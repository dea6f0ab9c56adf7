package detect_test

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/stretchr/testify/require"

	"loyscan/internal/capture"
	"loyscan/internal/detect"
	mockdetect "loyscan/internal/detect/mock"
	"loyscan/pkg/domain"
)

// fakeFrame implements capture.Frame with configurable capability support.
type fakeFrame struct {
	bitmapErr error
	drawErr   error
	drawn     atomic.Int32
}

func (f *fakeFrame) Bounds() image.Rectangle { return image.Rect(0, 0, 4, 4) }

func (f *fakeFrame) Bitmap() (image.Image, error) {
	if f.bitmapErr != nil {
		return nil, f.bitmapErr
	}

	return image.NewRGBA(f.Bounds()), nil
}

func (f *fakeFrame) Draw(_ *image.RGBA) error {
	f.drawn.Add(1)

	return f.drawErr
}

// fakeSource hands out the same frame on every sample and counts calls. When
// err is set it is returned after failAfter successful frames (immediately
// for failAfter zero).
type fakeSource struct {
	frame     capture.Frame
	err       error
	failAfter int32
	calls     atomic.Int32
}

func (s *fakeSource) Frame(_ context.Context) (capture.Frame, error) {
	n := s.calls.Add(1)
	if s.err != nil && n > s.failAfter {
		return nil, s.err
	}

	return s.frame, nil
}

const testInterval = 10 * time.Millisecond

func TestLoop_RequiresDecoderAndCallback(t *testing.T) {
	l := detect.New(detect.Options{})
	err := l.Start(context.Background(), &fakeSource{})
	require.Error(t, err)
}

func TestLoop_DirectStrategy(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	frame := &fakeFrame{}
	src := &fakeSource{frame: frame}

	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).
		Return([]domain.RawDetection{{Text: "payload", Symbology: domain.SymbologyQR}}, nil).
		AnyTimes()

	var firstFrames, detections atomic.Int32
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnFirstFrame:   func() { firstFrames.Add(1) },
		OnDetection: func(_ context.Context, d domain.RawDetection) {
			require.Equal(t, "payload", d.Text)
			detections.Add(1)
		},
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return detections.Load() >= 2 }, time.Second, time.Millisecond)
	require.Equal(t, int32(1), firstFrames.Load(), "first-frame hook must fire exactly once")
}

func TestLoop_BitmapFallbackProbedOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	frame := &fakeFrame{}
	src := &fakeSource{frame: frame}

	// the direct strategy is probed exactly once, then the bitmap strategy is pinned
	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).Return(nil, capture.ErrUnsupported).Times(1)
	dec.EXPECT().DecodeImage(gomock.Any(), gomock.Any()).
		Return([]domain.RawDetection{{Text: "payload", Symbology: domain.SymbologyPDF417}}, nil).
		AnyTimes()

	var detections atomic.Int32
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection:    func(context.Context, domain.RawDetection) { detections.Add(1) },
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return detections.Load() >= 3 }, time.Second, time.Millisecond)
	require.Equal(t, int32(0), frame.drawn.Load(), "bitmap strategy must not draw a raster")
}

func TestLoop_RasterFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	frame := &fakeFrame{bitmapErr: capture.ErrUnsupported}
	src := &fakeSource{frame: frame}

	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).Return(nil, capture.ErrUnsupported).Times(1)
	dec.EXPECT().DecodeImage(gomock.Any(), gomock.Any()).
		Return([]domain.RawDetection{{Text: "payload", Symbology: domain.SymbologyQR}}, nil).
		AnyTimes()

	var detections atomic.Int32
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection:    func(context.Context, domain.RawDetection) { detections.Add(1) },
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return detections.Load() >= 2 }, time.Second, time.Millisecond)
	require.Positive(t, frame.drawn.Load(), "raster strategy must draw into the buffer")
}

func TestLoop_StopPreventsFurtherCallbacks(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	src := &fakeSource{frame: &fakeFrame{}}

	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).
		Return([]domain.RawDetection{{Text: "payload", Symbology: domain.SymbologyQR}}, nil).
		AnyTimes()

	var detections atomic.Int32
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection:    func(context.Context, domain.RawDetection) { detections.Add(1) },
	})

	require.NoError(t, l.Start(context.Background(), src))
	require.Eventually(t, func() bool { return detections.Load() >= 1 }, time.Second, time.Millisecond)

	l.Stop()
	seen := detections.Load()
	time.Sleep(10 * testInterval)
	require.Equal(t, seen, detections.Load(), "no callback may fire after Stop returns")

	// stopping twice is a no-op
	l.Stop()
}

func TestLoop_DetectionsProcessedSerially(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	src := &fakeSource{frame: &fakeFrame{}}

	// three detections per frame must still arrive one at a time
	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).
		Return([]domain.RawDetection{
			{Text: "a", Symbology: domain.SymbologyQR},
			{Text: "b", Symbology: domain.SymbologyQR},
			{Text: "c", Symbology: domain.SymbologyQR},
		}, nil).
		AnyTimes()

	var inFlight, detections atomic.Int32
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection: func(context.Context, domain.RawDetection) {
			require.Equal(t, int32(1), inFlight.Add(1), "detections must not overlap")
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			detections.Add(1)
		},
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return detections.Load() >= 6 }, time.Second, time.Millisecond)
}

func TestLoop_HardwareFailureEscalates(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	src := &fakeSource{
		frame:     &fakeFrame{},
		err:       &capture.PlatformError{Name: capture.PlatformNotReadable},
		failAfter: 2,
	}

	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	var terminal atomic.Int32
	var terminalErr error
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection:    func(context.Context, domain.RawDetection) {},
		OnTerminalError: func(err error) {
			terminalErr = err
			terminal.Add(1)
		},
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return terminal.Load() == 1 }, time.Second, time.Millisecond)

	var platformErr *capture.PlatformError
	require.ErrorAs(t, terminalErr, &platformErr)
	require.Equal(t, capture.PlatformNotReadable, platformErr.Name)

	// the stream is dead, sampling must not continue
	sampled := src.calls.Load()
	time.Sleep(5 * testInterval)
	require.Equal(t, sampled, src.calls.Load(), "loop must stop sampling a failed stream")
	require.Equal(t, int32(1), terminal.Load(), "terminal error must be delivered once")
}

func TestLoop_TransientFrameErrorKeepsSampling(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	src := &fakeSource{err: errors.New("frame dropped")}

	l := detect.New(detect.Options{
		Decoder:         dec,
		SampleInterval:  testInterval,
		OnDetection:     func(context.Context, domain.RawDetection) {},
		OnTerminalError: func(error) { t.Error("a transient frame error must not escalate") },
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestLoop_NoUsableStrategyEscalates(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	frame := &fakeFrame{bitmapErr: capture.ErrUnsupported, drawErr: capture.ErrUnsupported}
	src := &fakeSource{frame: frame}

	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).Return(nil, capture.ErrUnsupported).Times(1)

	var terminal atomic.Int32
	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection:    func(context.Context, domain.RawDetection) {},
		OnTerminalError: func(err error) {
			require.ErrorIs(t, err, capture.ErrUnsupported)
			terminal.Add(1)
		},
	})

	require.NoError(t, l.Start(context.Background(), src))
	defer l.Stop()

	require.Eventually(t, func() bool { return terminal.Load() == 1 }, time.Second, time.Millisecond)
}

func TestLoop_StopFromDetectionCallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	src := &fakeSource{frame: &fakeFrame{}}

	dec.EXPECT().DecodeFrame(gomock.Any(), gomock.Any()).
		Return([]domain.RawDetection{{Text: "payload", Symbology: domain.SymbologyQR}}, nil).
		AnyTimes()

	var detections atomic.Int32
	var l *detect.Loop
	l = detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection: func(context.Context, domain.RawDetection) {
			detections.Add(1)
			l.Stop()
		},
	})

	require.NoError(t, l.Start(context.Background(), src))

	require.Eventually(t, func() bool { return detections.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(5 * testInterval)
	require.Equal(t, int32(1), detections.Load(), "no callback may start after a callback-issued Stop")
}

func TestLoop_ClosedSourceTerminates(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mockdetect.NewMockDecoder(ctrl)
	src := &fakeSource{err: capture.ErrClosed}

	l := detect.New(detect.Options{
		Decoder:        dec,
		SampleInterval: testInterval,
		OnDetection:    func(context.Context, domain.RawDetection) { t.Error("no detection expected") },
	})

	require.NoError(t, l.Start(context.Background(), src))
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	time.Sleep(5 * testInterval)
	require.Equal(t, int32(1), src.calls.Load(), "loop must terminate once the handle is closed")

	l.Stop()
}
