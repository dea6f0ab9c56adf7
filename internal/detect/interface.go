package detect

import (
	"context"
	"image"

	"loyscan/internal/capture"
	"loyscan/pkg/domain"
)

//go:generate mockgen -package mockdetect -source=interface.go -destination=mock/mockdetect.go *

// Decoder is the barcode decode backend. Implementations wrap whatever the
// platform offers; a backend that cannot operate on platform frame objects
// directly returns capture.ErrUnsupported from DecodeFrame and the loop
// falls back to raster decoding.
type Decoder interface {
	// DecodeFrame runs detection directly on the platform frame object.
	DecodeFrame(ctx context.Context, frame capture.Frame) ([]domain.RawDetection, error)
	// DecodeImage runs detection on a raster image.
	DecodeImage(ctx context.Context, img image.Image) ([]domain.RawDetection, error)
}

// FrameSource yields frames from the active capture stream.
// *capture.Handle implements it.
type FrameSource interface {
	Frame(ctx context.Context) (capture.Frame, error)
}
