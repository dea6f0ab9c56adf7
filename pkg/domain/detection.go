package domain

// Symbology identifies the barcode encoding standard a detection came from.
type Symbology string

const (
	// SymbologyQR is a standard QR code.
	SymbologyQR Symbology = "qr"
	// SymbologyPDF417 is a PDF417 barcode, used by some wallet passes.
	SymbologyPDF417 Symbology = "pdf417"
)

// RawDetection is a single raw barcode hit produced by the decoder backend.
// It is ephemeral: once classified into a DecodedToken it is discarded.
type RawDetection struct {
	// Text is the raw payload text exactly as read from the barcode.
	Text string
	// Symbology names the encoding standard the payload was read from.
	Symbology Symbology
}
