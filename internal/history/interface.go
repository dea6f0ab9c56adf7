package history

import (
	"context"
	"time"

	"loyscan/pkg/domain"
)

// Record is one successful scan persisted to local history.
type Record struct {
	// ID is a unique record identifier.
	ID string `json:"id"`
	// SessionID names the scan session that produced the record.
	SessionID string `json:"sessionId"`
	// At is the decode time.
	At time.Time `json:"at"`
	// Format is the payload format the token was decoded from.
	Format domain.FormatKind `json:"format"`
	// Symbology is the barcode standard the payload was read from.
	Symbology domain.Symbology `json:"symbology"`
	// CustomerToken is the decoded customer token.
	CustomerToken string `json:"customerToken"`
	// OfferHash is the decoded offer hash, empty when the backend
	// auto-selects an offer.
	OfferHash string `json:"offerHash,omitempty"`
}

//go:generate mockgen -package mockhistory -source=interface.go -destination=mock/mockhistory.go *

// Store persists scan records on the device.
type Store interface {
	// Append stores a record at the end of the history.
	Append(ctx context.Context, record Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Close releases the underlying database.
	Close() error
}
