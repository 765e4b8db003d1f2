// Package contracts holds the data model shared by the router, gate, policy
// engine, profile enforcer, and ledger: identifiers, envelopes, commitments,
// decision cards, profiles, and ledger receipts.
package contracts

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// WorldlineID identifies the durable causal history of one identity. It is
// an opaque, byte-exact-comparable string derived from identity material.
type WorldlineID string

// EventID identifies a single envelope.
type EventID string

// CommitmentID identifies a proposed effect.
type CommitmentID string

// ReceiptHash is the 32-byte content hash of a ledger receipt, hex-encoded.
type ReceiptHash string

// NewWorldlineID derives a worldline id from 32 bytes of identity seed.
// Distinct seeds must never collide; the function does not hash the seed
// further since the seed itself is assumed to already be high-entropy
// identity material (e.g. a public key or a content hash).
func NewWorldlineID(seed [32]byte) WorldlineID {
	return WorldlineID("wl_" + hex.EncodeToString(seed[:]))
}

// NewEventID mints a fresh random 128-bit event id.
func NewEventID() EventID {
	return EventID("ev_" + uuid.New().String())
}

// NewCommitmentID mints a fresh random 128-bit commitment id.
func NewCommitmentID() CommitmentID {
	return CommitmentID("cm_" + uuid.New().String())
}
