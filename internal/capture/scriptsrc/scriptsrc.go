// Package scriptsrc replays scripted payloads through the capture and
// detect interfaces, standing in for a real camera and barcode decoder.
// It exists for local runs and kiosk provisioning checks where no camera
// hardware is attached.
//
// A script is a plain text file with one payload per line. Blank lines and
// lines starting with "#" are skipped. A line may carry an explicit
// symbology prefix, e.g. "pdf417|{...}"; payloads default to QR.
package scriptsrc

import (
	"bufio"
	"context"
	"image"
	"os"
	"strings"
	"sync"

	"loyscan/internal/capture"
	"loyscan/pkg/domain"
	"loyscan/pkg/serrors"
)

// frameSize is the bounds reported by synthetic frames.
const frameSize = 64

// framesPerPayload spaces scripted payloads out so each one arrives on its
// own sampled frame, the way a user presenting codes one after another would.
const framesPerPayload = 3

// Script serves synthetic frames as a capture.Provider and replays the
// scripted payloads as a detect.Decoder. Pass the same value in both roles.
type Script struct {
	mu       sync.Mutex
	pending  []domain.RawDetection
	frameNum int
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not open scan script")
	}
	defer func() {
		_ = f.Close()
	}()

	var pending []domain.RawDetection
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		d := domain.RawDetection{Text: line, Symbology: domain.SymbologyQR}
		if sym, rest, ok := strings.Cut(line, "|"); ok {
			switch domain.Symbology(sym) {
			case domain.SymbologyQR, domain.SymbologyPDF417:
				d = domain.RawDetection{Text: rest, Symbology: domain.Symbology(sym)}
			}
		}
		pending = append(pending, d)
	}
	if err := sc.Err(); err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not read scan script")
	}

	return &Script{pending: pending}, nil
}

// Secure reports true: replayed sessions are always treated as secure.
func (s *Script) Secure() bool { return true }

// Open returns a stream of synthetic frames. Constraints are ignored.
func (s *Script) Open(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	return &stream{}, nil
}

// DecodeFrame replays the next scripted payload on every third frame and
// reports nothing otherwise. Once the script is exhausted every frame is
// empty.
func (s *Script) DecodeFrame(ctx context.Context, frame capture.Frame) ([]domain.RawDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameNum++
	if len(s.pending) == 0 || s.frameNum%framesPerPayload != 0 {
		return nil, nil
	}

	d := s.pending[0]
	s.pending = s.pending[1:]

	return []domain.RawDetection{d}, nil
}

// DecodeImage replays through the same queue as DecodeFrame.
func (s *Script) DecodeImage(ctx context.Context, img image.Image) ([]domain.RawDetection, error) {
	return s.DecodeFrame(ctx, nil)
}

// Remaining reports how many scripted payloads have not been replayed yet.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

type stream struct {
	mu     sync.Mutex
	closed bool
}

func (st *stream) Frame(ctx context.Context) (capture.Frame, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return nil, capture.ErrClosed
	}

	return syntheticFrame{}, nil
}

func (st *stream) TorchSupported() (bool, error) { return false, nil }

func (st *stream) SetTorch(ctx context.Context, on bool) error {
	return capture.ErrUnsupported
}

func (st *stream) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.closed = true

	return nil
}

type syntheticFrame struct{}

func (syntheticFrame) Bounds() image.Rectangle { return image.Rect(0, 0, frameSize, frameSize) }

func (syntheticFrame) Bitmap() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, frameSize, frameSize)), nil
}

func (syntheticFrame) Draw(dst *image.RGBA) error { return nil }
