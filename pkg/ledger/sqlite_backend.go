package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mapleaiorg/kernel/pkg/canonicalize"
	"github.com/mapleaiorg/kernel/pkg/contracts"
)

// SQLite is the durable Ledger backend named in spec §9 ("durable variants
// (file-log, remote)") and spec §6 ("rebuildable by replay"): every
// receipt is persisted keyed by (worldline, seq), so a full ledger state
// can be reconstructed from the table alone.
type SQLite struct {
	mu     sync.Mutex // single-writer; per-worldline fan-out happens above this backend in pkg/gate
	db     *sql.DB
	nodeID uint16
	clock  func() time.Time
}

// OpenSQLite opens (creating if necessary) a sqlite-backed ledger at dsn.
func OpenSQLite(dsn string, nodeID uint16) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, contracts.Wrap(contracts.KindBackend, "opening sqlite ledger", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, contracts.Wrap(contracts.KindBackend, "creating sqlite ledger schema", err)
	}
	return &SQLite{db: db, nodeID: nodeID, clock: time.Now}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS receipts (
	worldline TEXT NOT NULL,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	receipt_hash TEXT NOT NULL UNIQUE,
	prev_hash TEXT,
	physical_ms INTEGER NOT NULL,
	logical_counter INTEGER NOT NULL,
	node_id INTEGER NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (worldline, seq)
);
CREATE INDEX IF NOT EXISTS idx_receipts_hash ON receipts(receipt_hash);
`

// WithClock overrides the clock used to mint temporal anchors, for
// deterministic testing.
func (l *SQLite) WithClock(clock func() time.Time) *SQLite {
	l.clock = clock
	return l
}

func (l *SQLite) tail(worldline contracts.WorldlineID) (contracts.Receipt, bool, error) {
	row := l.db.QueryRow(
		`SELECT payload FROM receipts WHERE worldline = ? ORDER BY seq DESC LIMIT 1`,
		string(worldline),
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return contracts.Receipt{}, false, nil
		}
		return contracts.Receipt{}, false, contracts.Wrap(contracts.KindBackend, "reading ledger tail", err)
	}
	var r contracts.Receipt
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return contracts.Receipt{}, false, contracts.Wrap(contracts.KindSerialization, "decoding ledger tail", err)
	}
	return r, true, nil
}

func (l *SQLite) insert(worldline contracts.WorldlineID, kind contracts.ReceiptKind, build func(common contracts.ReceiptCommon) contracts.Receipt) (contracts.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail, hasTail, err := l.tail(worldline)
	if err != nil {
		return contracts.Receipt{}, err
	}

	seq := uint64(1)
	var prevHash *contracts.ReceiptHash
	prevAnchor := contracts.TemporalAnchor{NodeID: l.nodeID}
	if hasTail {
		seq = tail.Seq + 1
		h := tail.ReceiptHash
		prevHash = &h
		prevAnchor = tail.Anchor
	}

	anchor := nextAnchor(l.clock().UnixMilli(), prevAnchor, l.nodeID)
	common := contracts.ReceiptCommon{Worldline: worldline, Seq: seq, PrevHash: prevHash, Anchor: anchor}
	receipt := build(common)
	receipt.Kind = kind

	hash, err := receiptHash(receipt)
	if err != nil {
		return contracts.Receipt{}, contracts.Wrap(contracts.KindSerialization, "hashing receipt", err)
	}
	receipt.ReceiptHash = contracts.ReceiptHash(hash)

	payload, err := json.Marshal(receipt)
	if err != nil {
		return contracts.Receipt{}, contracts.Wrap(contracts.KindSerialization, "encoding receipt", err)
	}

	var prevHashStr any
	if prevHash != nil {
		prevHashStr = string(*prevHash)
	}
	_, err = l.db.Exec(
		`INSERT INTO receipts (worldline, seq, kind, receipt_hash, prev_hash, physical_ms, logical_counter, node_id, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(worldline), seq, string(kind), string(receipt.ReceiptHash), prevHashStr,
		anchor.PhysicalMs, anchor.LogicalCounter, anchor.NodeID, string(payload),
	)
	if err != nil {
		return contracts.Receipt{}, contracts.Wrap(contracts.KindBackend, "inserting receipt (possible hash collision)", err)
	}
	return receipt, nil
}

func (l *SQLite) AppendCommitment(worldline contracts.WorldlineID, body contracts.CommitmentReceiptBody) (contracts.Receipt, error) {
	return l.insert(worldline, contracts.ReceiptKindCommitment, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Commitment: &b}
	})
}

func (l *SQLite) AppendOutcome(worldline contracts.WorldlineID, commitmentReceiptHash contracts.ReceiptHash, outcome contracts.OutcomeRecord, accepted bool) (contracts.Receipt, error) {
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
	return l.insert(worldline, contracts.ReceiptKindOutcome, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Outcome: &b}
	})
}

func (l *SQLite) AppendRejectionOutcome(worldline contracts.WorldlineID, commitmentReceiptHash contracts.ReceiptHash, reason string) (contracts.Receipt, error) {
	commitmentReceipt, err := l.GetByHash(commitmentReceiptHash)
	if err != nil {
		return contracts.Receipt{}, err
	}
	if commitmentReceipt == nil || commitmentReceipt.Kind != contracts.ReceiptKindCommitment {
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindNotFound, "referenced commitment receipt not found")
	}
	body := contracts.OutcomeReceiptBody{CommitmentReceiptHash: commitmentReceiptHash, Accepted: false, RejectReason: reason}
	return l.insert(worldline, contracts.ReceiptKindOutcome, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Outcome: &b}
	})
}

func (l *SQLite) AppendSnapshot(worldline contracts.WorldlineID, anchoredReceiptHash contracts.ReceiptHash, state []byte) (contracts.Receipt, error) {
	anchored, err := l.GetByHash(anchoredReceiptHash)
	if err != nil {
		return contracts.Receipt{}, err
	}
	if anchored == nil || anchored.Worldline != worldline {
		return contracts.Receipt{}, contracts.NewKernelError(contracts.KindNotFound, "anchored receipt not found in this worldline's stream")
	}
	body := contracts.SnapshotReceiptBody{AnchoredReceiptHash: anchoredReceiptHash, StateHash: canonicalize.BLAKE3Hash(state), State: state}
	return l.insert(worldline, contracts.ReceiptKindSnapshot, func(common contracts.ReceiptCommon) contracts.Receipt {
		b := body
		return contracts.Receipt{ReceiptCommon: common, Snapshot: &b}
	})
}

func (l *SQLite) Head(worldline contracts.WorldlineID) (*contracts.ReceiptRef, error) {
	tail, ok, err := l.tail(worldline)
	if err != nil || !ok {
		return nil, err
	}
	return &contracts.ReceiptRef{Worldline: worldline, Seq: tail.Seq, ReceiptHash: tail.ReceiptHash}, nil
}

func (l *SQLite) ReadRange(worldline contracts.WorldlineID, fromSeq, toSeq uint64) ([]contracts.Receipt, error) {
	if fromSeq == 0 || fromSeq > toSeq {
		return nil, contracts.NewInvalidRange(fromSeq, toSeq)
	}
	rows, err := l.db.Query(
		`SELECT payload FROM receipts WHERE worldline = ? AND seq >= ? AND seq <= ? ORDER BY seq ASC`,
		string(worldline), fromSeq, toSeq,
	)
	if err != nil {
		return nil, contracts.Wrap(contracts.KindBackend, "reading receipt range", err)
	}
	defer rows.Close()
	return scanReceipts(rows)
}

func (l *SQLite) ReadAll(worldline contracts.WorldlineID) ([]contracts.Receipt, error) {
	rows, err := l.db.Query(`SELECT payload FROM receipts WHERE worldline = ? ORDER BY seq ASC`, string(worldline))
	if err != nil {
		return nil, contracts.Wrap(contracts.KindBackend, "reading receipt stream", err)
	}
	defer rows.Close()
	return scanReceipts(rows)
}

func (l *SQLite) GetByHash(hash contracts.ReceiptHash) (*contracts.Receipt, error) {
	row := l.db.QueryRow(`SELECT payload FROM receipts WHERE receipt_hash = ?`, string(hash))
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, contracts.Wrap(contracts.KindBackend, "reading receipt by hash", err)
	}
	var r contracts.Receipt
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, contracts.Wrap(contracts.KindSerialization, "decoding receipt", err)
	}
	return &r, nil
}

func (l *SQLite) Worldlines() []contracts.WorldlineID {
	rows, err := l.db.Query(`SELECT DISTINCT worldline FROM receipts`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []contracts.WorldlineID
	for rows.Next() {
		var w string
		if rows.Scan(&w) == nil {
			out = append(out, contracts.WorldlineID(w))
		}
	}
	return out
}

// ValidateStream rebuilds the stream from the log and re-verifies
// invariants L1-L5, demonstrating the replay property spec §6 requires of
// persisted state.
func (l *SQLite) ValidateStream(worldline contracts.WorldlineID) error {
	receipts, err := l.ReadAll(worldline)
	if err != nil {
		return err
	}
	mem := NewInMemory(l.nodeID)
	s := mem.streamFor(worldline)
	s.receipts = receipts
	for i, r := range receipts {
		mem.indexMu.Lock()
		mem.hashIndex[r.ReceiptHash] = hashLoc{worldline: worldline, position: i}
		mem.indexMu.Unlock()
	}
	return mem.ValidateStream(worldline)
}

func scanReceipts(rows *sql.Rows) ([]contracts.Receipt, error) {
	var out []contracts.Receipt
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, contracts.Wrap(contracts.KindBackend, "scanning receipt row", err)
		}
		var r contracts.Receipt
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, contracts.Wrap(contracts.KindSerialization, "decoding receipt", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (l *SQLite) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("closing sqlite ledger: %w", err)
	}
	return nil
}

var _ Ledger = (*SQLite)(nil)
