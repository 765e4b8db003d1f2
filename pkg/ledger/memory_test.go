package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleaiorg/kernel/pkg/contracts"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func approveCard() contracts.Decision {
	return contracts.DecisionApprove
}

func denyCard() contracts.Decision {
	return contracts.DecisionDeny
}

func TestAppendCommitment_FirstReceiptHasNoPrevHash(t *testing.T) {
	l := NewInMemory(1).WithClock(fixedClock(time.UnixMilli(1000)))
	r, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Seq)
	assert.Nil(t, r.PrevHash)
	assert.NotEmpty(t, r.ReceiptHash)
}

func TestAppendCommitment_ChainsPrevHash(t *testing.T) {
	l := NewInMemory(1).WithClock(fixedClock(time.UnixMilli(1000)))
	r1, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	r2, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	require.NotNil(t, r2.PrevHash)
	assert.Equal(t, r1.ReceiptHash, *r2.PrevHash)
	assert.Equal(t, uint64(2), r2.Seq)
}

func TestAppendCommitment_IndependentWorldlinesDoNotShareSeq(t *testing.T) {
	l := NewInMemory(1)
	rA, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	rB, err := l.AppendCommitment("wl-B", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rA.Seq)
	assert.Equal(t, uint64(1), rB.Seq)
	assert.Nil(t, rB.PrevHash)
}

func TestAppendOutcome_RequiresExistingCommitment(t *testing.T) {
	l := NewInMemory(1)
	_, err := l.AppendOutcome("wl-A", "nonexistent-hash", contracts.OutcomeRecord{}, true)
	require.Error(t, err)
	kerr, ok := err.(*contracts.KernelError)
	require.True(t, ok)
	assert.Equal(t, contracts.KindNotFound, kerr.Kind)
}

func TestAppendOutcome_RejectsAcceptedOutcomeOnDeniedCommitment(t *testing.T) {
	l := NewInMemory(1)
	commitment, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: denyCard()})
	require.NoError(t, err)
	_, err = l.AppendOutcome("wl-A", commitment.ReceiptHash, contracts.OutcomeRecord{}, true)
	require.Error(t, err)
	kerr, ok := err.(*contracts.KernelError)
	require.True(t, ok)
	assert.Equal(t, contracts.KindInvalidStateTransition, kerr.Kind)
}

func TestAppendOutcome_AcceptsOutcomeOnApprovedCommitment(t *testing.T) {
	l := NewInMemory(1)
	commitment, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	outcome, err := l.AppendOutcome("wl-A", commitment.ReceiptHash, contracts.OutcomeRecord{}, true)
	require.NoError(t, err)
	assert.Equal(t, commitment.ReceiptHash, outcome.Outcome.CommitmentReceiptHash)
	assert.True(t, outcome.Outcome.Accepted)
}

func TestAppendRejectionOutcome_RequiresExistingCommitment(t *testing.T) {
	l := NewInMemory(1)
	_, err := l.AppendRejectionOutcome("wl-A", "nonexistent-hash", "declined")
	require.Error(t, err)
}

func TestAppendSnapshot_RequiresAnchorInSameWorldline(t *testing.T) {
	l := NewInMemory(1)
	commitment, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)

	_, err = l.AppendSnapshot("wl-B", commitment.ReceiptHash, []byte("state"))
	require.Error(t, err)

	snap, err := l.AppendSnapshot("wl-A", commitment.ReceiptHash, []byte("state"))
	require.NoError(t, err)
	assert.Equal(t, commitment.ReceiptHash, snap.Snapshot.AnchoredReceiptHash)
}

func TestValidateStream_AcceptsHealthyChain(t *testing.T) {
	l := NewInMemory(1)
	commitment, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	_, err = l.AppendOutcome("wl-A", commitment.ReceiptHash, contracts.OutcomeRecord{}, true)
	require.NoError(t, err)
	_, err = l.AppendSnapshot("wl-A", commitment.ReceiptHash, []byte("state"))
	require.NoError(t, err)

	require.NoError(t, l.ValidateStream("wl-A"))
}

func TestValidateStream_DetectsTamperedPayload(t *testing.T) {
	l := NewInMemory(1)
	_, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)

	s := l.streamFor("wl-A")
	s.receipts[0].Commitment.Decision = contracts.DecisionDeny

	err = l.ValidateStream("wl-A")
	require.Error(t, err)
	kerr, ok := err.(*contracts.KernelError)
	require.True(t, ok)
	assert.Equal(t, contracts.KindIntegrityViolation, kerr.Kind)
}

func TestValidateStream_DetectsBrokenPrevHashChain(t *testing.T) {
	l := NewInMemory(1)
	_, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	_, err = l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)

	s := l.streamFor("wl-A")
	bogus := contracts.ReceiptHash("not-the-real-prev-hash")
	s.receipts[1].PrevHash = &bogus

	err = l.ValidateStream("wl-A")
	require.Error(t, err)
}

func TestReadRange_RejectsInvalidBounds(t *testing.T) {
	l := NewInMemory(1)
	_, err := l.ReadRange("wl-A", 0, 5)
	require.Error(t, err)
	kerr, ok := err.(*contracts.KernelError)
	require.True(t, ok)
	assert.Equal(t, contracts.KindInvalidInput, kerr.Kind)

	_, err = l.ReadRange("wl-A", 5, 2)
	require.Error(t, err)
}

func TestReadRange_ReturnsOnlyRequestedSlice(t *testing.T) {
	l := NewInMemory(1)
	for i := 0; i < 5; i++ {
		_, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
		require.NoError(t, err)
	}
	out, err := l.ReadRange("wl-A", 2, 4)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, uint64(2), out[0].Seq)
	assert.Equal(t, uint64(4), out[2].Seq)
}

func TestHead_ReturnsNilForEmptyWorldline(t *testing.T) {
	l := NewInMemory(1)
	head, err := l.Head("wl-unknown")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestGetByHash_ReturnsNilForUnknownHash(t *testing.T) {
	l := NewInMemory(1)
	r, err := l.GetByHash("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestWorldlines_ListsEveryStreamThatHasBeenWritten(t *testing.T) {
	l := NewInMemory(1)
	_, err := l.AppendCommitment("wl-A", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)
	_, err = l.AppendCommitment("wl-B", contracts.CommitmentReceiptBody{Decision: approveCard()})
	require.NoError(t, err)

	worldlines := l.Worldlines()
	assert.Len(t, worldlines, 2)
}

func TestNextAnchor_AdvancesLogicalCounterWithinSameMillisecond(t *testing.T) {
	prev := contracts.TemporalAnchor{PhysicalMs: 1000, LogicalCounter: 3, NodeID: 7}
	next := nextAnchor(1000, prev, 7)
	assert.Equal(t, int64(1000), next.PhysicalMs)
	assert.Equal(t, uint64(4), next.LogicalCounter)
}

func TestNextAnchor_ResetsLogicalCounterOnNewMillisecond(t *testing.T) {
	prev := contracts.TemporalAnchor{PhysicalMs: 1000, LogicalCounter: 9, NodeID: 7}
	next := nextAnchor(1005, prev, 7)
	assert.Equal(t, int64(1005), next.PhysicalMs)
	assert.Equal(t, uint64(0), next.LogicalCounter)
}
