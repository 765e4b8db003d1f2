package ledger

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/mapleaiorg/kernel/pkg/canonicalize"
	"github.com/mapleaiorg/kernel/pkg/contracts"
)

type hashLoc struct {
	worldline contracts.WorldlineID
	position  int
}

type stream struct {
	mu       sync.Mutex
	receipts []contracts.Receipt
}

// InMemory is the in-memory Ledger implementation: the default for tests
// and embedded use (spec §9).
type InMemory struct {
	streamsMu sync.RWMutex
	streams   map[contracts.WorldlineID]*stream

	indexMu   sync.RWMutex
	hashIndex map[contracts.ReceiptHash]hashLoc

	nodeID uint16
	clock  func() time.Time
}

// NewInMemory builds an empty ledger. nodeID is embedded in every temporal
// anchor this node mints.
func NewInMemory(nodeID uint16) *InMemory {
	return &InMemory{
		streams:   make(map[contracts.WorldlineID]*stream),
		hashIndex: make(map[contracts.ReceiptHash]hashLoc),
		nodeID:    nodeID,
		clock:     time.Now,
	}
}

// WithClock overrides the clock used to mint temporal anchors, for
// deterministic testing.
func (l *InMemory) WithClock(clock func() time.Time) *InMemory {
	l.clock = clock
	return l
}

func (l *InMemory) streamFor(worldline contracts.WorldlineID) *stream {
	l.streamsMu.RLock()
	s, ok := l.streams[worldline]
	l.streamsMu.RUnlock()
	if ok {
		return s
	}
	l.streamsMu.Lock()
	defer l.streamsMu.Unlock()
	if s, ok = l.streams[worldline]; ok {
		return s
	}
	s = &stream{}
	l.streams[worldline] = s
	return s
}

// appendLocked computes the next anchor and seq for s (caller holds
// s.mu), builds the receipt with its hash, and appends it.
func (l *InMemory) appendLocked(worldline contracts.WorldlineID, s *stream, kind contracts.ReceiptKind, build func(common contracts.ReceiptCommon) contracts.Receipt) (contracts.Receipt, error) {
	seq := uint64(len(s.receipts)) + 1
	var prevHash *contracts.ReceiptHash
	prevAnchor := contracts.TemporalAnchor{NodeID: l.nodeID}
	if len(s.receipts) > 0 {
		tail := s.receipts[len(s.receipts)-1]
		h := tail.ReceiptHash
		prevHash = &h
		prevAnchor = tail.Anchor
	}

	anchor := nextAnchor(l.clock().UnixMilli(), prevAnchor, l.nodeID)

	common := contracts.ReceiptCommon{
		Worldline: worldline,
		Seq:       seq,
		PrevHash:  prevHash,
		Anchor:    anchor,
	}
	receipt := build(common)
	receipt.Kind = kind

	hash, err := receiptHash(receipt)
	if err != nil {
		return contracts.Receipt{}, contracts.Wrap(contracts.KindSerialization, "hashing receipt", err)
	}
	receipt.ReceiptHash = contracts.ReceiptHash(hash)

	l.indexMu.Lock()
	if _, collision := l.hashIndex[receipt.ReceiptHash]; collision {
		l.indexMu.Unlock()
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindHashCollision, "receipt hash already present in index")
	}
	l.hashIndex[receipt.ReceiptHash] = hashLoc{worldline: worldline, position: len(s.receipts)}
	l.indexMu.Unlock()

	s.receipts = append(s.receipts, receipt)
	return receipt, nil
}

// receiptHash computes Invariant L3's hash: BLAKE3 over the domain
// separator plus the canonical bytes of the receipt with receipt_hash
// zeroed.
func receiptHash(r contracts.Receipt) (string, error) {
	r.ReceiptHash = ""
	return canonicalize.DomainHash(canonicalize.LedgerReceiptDomain, r)
}

func (l *InMemory) AppendCommitment(worldline contracts.WorldlineID, body contracts.CommitmentReceiptBody) (contracts.Receipt, error) {
	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.appendLocked(worldline, s, contracts.ReceiptKindCommitment, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Commitment: &b}
	})
}

func (l *InMemory) AppendOutcome(worldline contracts.WorldlineID, commitmentReceiptHash contracts.ReceiptHash, outcome contracts.OutcomeRecord, accepted bool) (contracts.Receipt, error) {
	commitmentReceipt, err := l.GetByHash(commitmentReceiptHash)
	if err != nil {
		return contracts.Receipt{}, err
	}
	if commitmentReceipt == nil || commitmentReceipt.Kind != contracts.ReceiptKindCommitment {
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindNotFound, "referenced commitment receipt not found")
	}
	if accepted && commitmentReceipt.Commitment.Decision != contracts.DecisionApprove {
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindInvalidStateTransition, "cannot accept outcome for a commitment that was not approved")
	}

	outcomeHash, err := canonicalize.JCSString(outcome)
	if err != nil {
		return contracts.Receipt{}, contracts.Wrap(contracts.KindSerialization, "hashing outcome", err)
	}
	body := contracts.OutcomeReceiptBody{
		CommitmentReceiptHash: commitmentReceiptHash,
		OutcomeHash:           canonicalize.BLAKE3Hash([]byte(outcomeHash)),
		Accepted:              accepted,
		Effects:               outcome.Effects,
		StateUpdates:          outcome.StateUpdates,
	}

	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.appendLocked(worldline, s, contracts.ReceiptKindOutcome, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Outcome: &b}
	})
}

func (l *InMemory) AppendRejectionOutcome(worldline contracts.WorldlineID, commitmentReceiptHash contracts.ReceiptHash, reason string) (contracts.Receipt, error) {
	commitmentReceipt, err := l.GetByHash(commitmentReceiptHash)
	if err != nil {
		return contracts.Receipt{}, err
	}
	if commitmentReceipt == nil || commitmentReceipt.Kind != contracts.ReceiptKindCommitment {
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindNotFound, "referenced commitment receipt not found")
	}

	body := contracts.OutcomeReceiptBody{
		CommitmentReceiptHash: commitmentReceiptHash,
		Accepted:              false,
		RejectReason:          reason,
	}

	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.appendLocked(worldline, s, contracts.ReceiptKindOutcome, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Outcome: &b}
	})
}

func (l *InMemory) AppendSnapshot(worldline contracts.WorldlineID, anchoredReceiptHash contracts.ReceiptHash, state []byte) (contracts.Receipt, error) {
	anchored, err := l.GetByHash(anchoredReceiptHash)
	if err != nil {
		return contracts.Receipt{}, err
	}
	if anchored == nil || anchored.Worldline != worldline {
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindNotFound, "anchored receipt not found in this worldline's stream")
	}

	body := contracts.SnapshotReceiptBody{
		AnchoredReceiptHash: anchoredReceiptHash,
		StateHash:           canonicalize.BLAKE3Hash(state),
		State:               state,
	}

	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	return l.appendLocked(worldline, s, contracts.ReceiptKindSnapshot, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Snapshot: &b}
	})
}

func (l *InMemory) Head(worldline contracts.WorldlineID) (*contracts.ReceiptRef, error) {
	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.receipts) == 0 {
		return nil, nil
	}
	tail := s.receipts[len(s.receipts)-1]
	return &contracts.ReceiptRef{Worldline: worldline, Seq: tail.Seq, ReceiptHash: tail.ReceiptHash}, nil
}

func (l *InMemory) ReadRange(worldline contracts.WorldlineID, fromSeq, toSeq uint64) ([]contracts.Receipt, error) {
	if fromSeq == 0 || fromSeq > toSeq {
		return nil, contracts.NewInvalidRange(fromSeq, toSeq)
	}
	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(fromSeq) > len(s.receipts) {
		return nil, nil
	}
	end := toSeq
	if end > uint64(len(s.receipts)) {
		end = uint64(len(s.receipts))
	}
	out := make([]contracts.Receipt, 0, end-fromSeq+1)
	for _, r := range s.receipts[fromSeq-1 : end] {
		out = append(out, r)
	}
	return out, nil
}

func (l *InMemory) ReadAll(worldline contracts.WorldlineID) ([]contracts.Receipt, error) {
	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contracts.Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out, nil
}

func (l *InMemory) GetByHash(hash contracts.ReceiptHash) (*contracts.Receipt, error) {
	l.indexMu.RLock()
	loc, ok := l.hashIndex[hash]
	l.indexMu.RUnlock()
	if !ok {
		return nil, nil
	}
	s := l.streamFor(loc.worldline)
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.position >= len(s.receipts) {
		return nil, nil
	}
	r := s.receipts[loc.position]
	return &r, nil
}

func (l *InMemory) Worldlines() []contracts.WorldlineID {
	l.streamsMu.RLock()
	defer l.streamsMu.RUnlock()
	out := make([]contracts.WorldlineID, 0, len(l.streams))
	for w := range l.streams {
		out = append(out, w)
	}
	return out
}

// ValidateStream re-verifies invariants L1-L5 over the full stream.
func (l *InMemory) ValidateStream(worldline contracts.WorldlineID) error {
	s := l.streamFor(worldline)
	s.mu.Lock()
	defer s.mu.Unlock()

	var prevHash *contracts.ReceiptHash
	byHash := make(map[contracts.ReceiptHash]contracts.Receipt, len(s.receipts))

	for i, r := range s.receipts {
		expectedSeq := uint64(i + 1)
		if r.Seq != expectedSeq {
			return contracts.NewIntegrityViolation(r.Seq, fmt.Sprintf("expected seq %d, found %d", expectedSeq, r.Seq))
		}
		if (prevHash == nil) != (r.PrevHash == nil) || (prevHash != nil && *prevHash != *r.PrevHash) {
			return contracts.NewIntegrityViolation(r.Seq, "prev_hash does not match predecessor's receipt hash")
		}

		recomputed, err := receiptHash(r)
		if err != nil {
			return contracts.Wrap(contracts.KindSerialization, "recomputing receipt hash", err)
		}
		if recomputed != string(r.ReceiptHash) {
			return contracts.NewIntegrityViolation(r.Seq, "receipt hash does not match recomputed value")
		}

		switch r.Kind {
		case contracts.ReceiptKindOutcome:
			commitment, ok := byHash[r.Outcome.CommitmentReceiptHash]
			if !ok || commitment.Kind != contracts.ReceiptKindCommitment {
				return contracts.NewIntegrityViolation(r.Seq, "outcome references a commitment receipt not in this stream")
			}
			if r.Outcome.Accepted && commitment.Commitment.Decision != contracts.DecisionApprove {
				return contracts.NewIntegrityViolation(r.Seq, "accepted outcome references a commitment that was not approved")
			}
		case contracts.ReceiptKindSnapshot:
			if _, ok := byHash[r.Snapshot.AnchoredReceiptHash]; !ok {
				return contracts.NewIntegrityViolation(r.Seq, "snapshot anchor not present in this stream")
			}
		}

		byHash[r.ReceiptHash] = r
		h := r.ReceiptHash
		prevHash = &h
	}
	return nil
}

// nodeIDBytes renders a node id as 2 big-endian bytes, a fixed-width key
// component alongside seq. No backend in this package calls it; the sqlite
// backend stores node_id as an INTEGER column.
func nodeIDBytes(nodeID uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, nodeID)
	return b
}

var _ Ledger = (*InMemory)(nil)
