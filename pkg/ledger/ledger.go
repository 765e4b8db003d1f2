// Package ledger implements the per-worldline append-only, hash-chained
// receipt store (spec §4.5).
package ledger

import "github.com/mapleaiorg/kernel/pkg/contracts"

// Ledger is the capability set every backend implements. The core depends
// only on this interface (spec §9 "Dynamic dispatch over storage"): an
// in-memory implementation backs tests and embedded use, a sqlite-backed
// implementation backs durable deployments.
type Ledger interface {
	AppendCommitment(worldline contracts.WorldlineID, body contracts.CommitmentReceiptBody) (contracts.Receipt, error)
	AppendOutcome(worldline contracts.WorldlineID, commitmentReceiptHash contracts.ReceiptHash, outcome contracts.OutcomeRecord, accepted bool) (contracts.Receipt, error)
	AppendRejectionOutcome(worldline contracts.WorldlineID, commitmentReceiptHash contracts.ReceiptHash, reason string) (contracts.Receipt, error)
	AppendSnapshot(worldline contracts.WorldlineID, anchoredReceiptHash contracts.ReceiptHash, state []byte) (contracts.Receipt, error)

	Head(worldline contracts.WorldlineID) (*contracts.ReceiptRef, error)
	ReadRange(worldline contracts.WorldlineID, fromSeq, toSeq uint64) ([]contracts.Receipt, error)
	ReadAll(worldline contracts.WorldlineID) ([]contracts.Receipt, error)
	GetByHash(hash contracts.ReceiptHash) (*contracts.Receipt, error)
	Worldlines() []contracts.WorldlineID
	ValidateStream(worldline contracts.WorldlineID) error
}

// nextAnchor implements the temporal anchor monotonicity algorithm (spec
// §4.5): advance the logical counter only within the same physical
// millisecond; otherwise adopt the new millisecond and reset to zero.
func nextAnchor(nowMs int64, prev contracts.TemporalAnchor, nodeID uint16) contracts.TemporalAnchor {
	if nowMs > prev.PhysicalMs {
		return contracts.TemporalAnchor{PhysicalMs: nowMs, LogicalCounter: 0, NodeID: nodeID}
	}
	return contracts.TemporalAnchor{PhysicalMs: prev.PhysicalMs, LogicalCounter: prev.LogicalCounter + 1, NodeID: nodeID}
}
