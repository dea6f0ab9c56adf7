package domain

import "github.com/google/uuid"

// SessionID uniquely identifies a scan session.
// It wraps uuid.UUID to provide type safety at the domain layer.
type SessionID uuid.UUID

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// String returns the canonical textual form of the identifier.
func (id SessionID) String() string { return uuid.UUID(id).String() }

// State represents the lifecycle state of a scan session. It is owned
// exclusively by the session controller and mutated only by its internal
// transition function.
type State string

const (
	// StateIdle means no hardware is held and no loop is running.
	StateIdle State = "IDLE"
	// StateInitializing means camera acquisition is in progress.
	StateInitializing State = "INITIALIZING"
	// StateReady means frames are flowing and the engine is waiting for a detection.
	StateReady State = "READY"
	// StateDetected means a raw detection was accepted and feedback fired.
	StateDetected State = "DETECTED"
	// StateProcessing means the payload grammar is classifying the detection.
	StateProcessing State = "PROCESSING"
	// StateSuccess means a DecodedToken was produced and handed to the caller.
	StateSuccess State = "SUCCESS"
	// StateError means the session hit a hardware or format error. A reset
	// returns it to READY, a stop to IDLE.
	StateError State = "ERROR"
)
