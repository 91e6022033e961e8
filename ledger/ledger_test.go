package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a clock that advances by one second on every call,
// starting at start.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

// commitOne records a single transaction and seals it into a block.
func commitOne(t *testing.T, l *Ledger, content string) Block {
	t.Helper()
	if _, err := l.RecordTransaction(content, VerdictReal, 90); err != nil {
		t.Fatalf("failed to record transaction: %v", err)
	}
	b, err := l.CommitBlock(123)
	if err != nil {
		t.Fatalf("failed to commit block: %v", err)
	}
	return b
}

// TestNewLedgerHasGenesis verifies that a fresh ledger holds exactly the
// genesis block with the fixed sentinel values.
func TestNewLedgerHasGenesis(t *testing.T) {
	l := New()

	if l.Len() != 1 {
		t.Fatalf("expected 1 block (genesis), got %d", l.Len())
	}
	genesis := l.LastBlock()
	if genesis.Index != 1 {
		t.Fatalf("genesis index should be 1, got %d", genesis.Index)
	}
	if genesis.PreviousHash != "1" {
		t.Fatalf("genesis previous hash should be '1', got %s", genesis.PreviousHash)
	}
	if genesis.Proof != 100 {
		t.Fatalf("genesis proof should be 100, got %d", genesis.Proof)
	}
	if len(genesis.Transactions) != 0 {
		t.Fatalf("genesis should have no transactions, got %d", len(genesis.Transactions))
	}
	if genesis.Timestamp <= 0 {
		t.Fatalf("genesis should carry a timestamp, got %v", genesis.Timestamp)
	}
}

// TestRecordCommitLookupFlow runs the canonical record, commit, lookup
// sequence end to end.
func TestRecordCommitLookupFlow(t *testing.T) {
	l := New()

	next, err := l.RecordTransaction("Breaking news text", "Fake", 87.5)
	if err != nil {
		t.Fatalf("unexpected error recording transaction: %v", err)
	}
	if next != 2 {
		t.Fatalf("transaction should land in block 2, got %d", next)
	}

	block, err := l.CommitBlock(123)
	if err != nil {
		t.Fatalf("unexpected error committing block: %v", err)
	}
	if block.Index != 2 {
		t.Fatalf("block index should be 2, got %d", block.Index)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("block should hold 1 transaction, got %d", len(block.Transactions))
	}
	tx := block.Transactions[0]
	if tx.Confidence != "87.50%" {
		t.Fatalf("confidence should be '87.50%%', got %q", tx.Confidence)
	}
	if tx.Content != "Breaking news text" || tx.Verdict != "Fake" {
		t.Fatalf("unexpected transaction contents: %+v", tx)
	}

	view, ok := l.FindByDigest(Digest(block))
	if !ok {
		t.Fatal("digest of committed block should be found")
	}
	if view.Index != 2 {
		t.Fatalf("lookup should return block 2, got %d", view.Index)
	}
	if len(l.Pending()) != 0 {
		t.Fatalf("pending buffer should be empty after commit, got %d", len(l.Pending()))
	}
}

// TestMonotonicIndexing verifies that N commits produce indices 2..N+1 with no
// gaps or repeats.
func TestMonotonicIndexing(t *testing.T) {
	l := New()
	const n = 25
	for i := 0; i < n; i++ {
		b := commitOne(t, l, fmt.Sprintf("news %d", i))
		if b.Index != i+2 {
			t.Fatalf("commit %d: expected index %d, got %d", i, i+2, b.Index)
		}
	}
	for i, b := range l.Blocks() {
		if b.Index != i+1 {
			t.Fatalf("block at position %d has index %d", i, b.Index)
		}
	}
}

// TestChainLinkage verifies that each block stores the digest of its
// predecessor and that Verify accepts the chain.
func TestChainLinkage(t *testing.T) {
	l := New()
	for i := 0; i < 10; i++ {
		commitOne(t, l, fmt.Sprintf("news %d", i))
	}
	blocks := l.Blocks()
	for i := 1; i < len(blocks); i++ {
		if blocks[i].PreviousHash != Digest(blocks[i-1]) {
			t.Fatalf("block %d is not linked to block %d", blocks[i].Index, blocks[i-1].Index)
		}
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("valid chain failed verification: %v", err)
	}
}

// TestCommitWithoutTransactions verifies that an empty pending buffer still
// yields a block, with an empty transaction list.
func TestCommitWithoutTransactions(t *testing.T) {
	l := New()
	b, err := l.CommitBlock(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Transactions == nil || len(b.Transactions) != 0 {
		t.Fatalf("expected empty non-nil transaction list, got %#v", b.Transactions)
	}
	if b.Proof != 7 {
		t.Fatalf("proof should be 7, got %d", b.Proof)
	}
}

// TestPendingTransactionsRollIntoNextBlock verifies that every transaction
// recorded before a commit ends up, in order, in that block.
func TestPendingTransactionsRollIntoNextBlock(t *testing.T) {
	l := New()
	verdicts := []string{VerdictReal, VerdictFake, VerdictMalicious}
	for i, v := range verdicts {
		next, err := l.RecordTransaction(fmt.Sprintf("item %d", i), v, float64(i*10))
		if err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
		if next != 2 {
			t.Fatalf("all pending transactions target block 2, got %d", next)
		}
	}
	if got := len(l.Pending()); got != 3 {
		t.Fatalf("expected 3 pending transactions, got %d", got)
	}
	b, err := l.CommitBlock(123)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	for i, tx := range b.Transactions {
		if tx.Verdict != verdicts[i] {
			t.Fatalf("transaction %d: expected verdict %s, got %s", i, verdicts[i], tx.Verdict)
		}
	}
	if b.Transactions[2].Confidence != "20.00%" {
		t.Fatalf("unexpected confidence %q", b.Transactions[2].Confidence)
	}
}

// TestRecordTransactionRejectsInvalidInput verifies the invalid-argument
// cases and that rejected calls leave the pending buffer untouched.
func TestRecordTransactionRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name       string
		content    string
		verdict    string
		confidence float64
	}{
		{"empty verdict", "text", "", 50},
		{"invalid utf8 content", string([]byte{0xff, 0xfe}), VerdictReal, 50},
		{"invalid utf8 verdict", "text", string([]byte{0xc3}), 50},
		{"nan confidence", "text", VerdictReal, math.NaN()},
		{"infinite confidence", "text", VerdictReal, math.Inf(1)},
		{"negative confidence", "text", VerdictReal, -0.01},
		{"confidence above 100", "text", VerdictReal, 100.5},
	}
	l := New()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := l.RecordTransaction(c.content, c.verdict, c.confidence)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
	if len(l.Pending()) != 0 {
		t.Fatalf("rejected transactions must not be buffered, got %d", len(l.Pending()))
	}
}

// TestRecordTransactionAcceptsEmptyContent verifies that content carries no
// constraint beyond being a string.
func TestRecordTransactionAcceptsEmptyContent(t *testing.T) {
	l := New()
	if _, err := l.RecordTransaction("", "Whatever label", 0); err != nil {
		t.Fatalf("empty content should be accepted: %v", err)
	}
	if _, err := l.RecordTransaction("x", VerdictUnsure, 100); err != nil {
		t.Fatalf("confidence 100 should be accepted: %v", err)
	}
}

// TestCommitWithExplicitPreviousHash verifies that a caller-supplied previous
// hash is stored verbatim and that Verify then reports the detached link.
func TestCommitWithExplicitPreviousHash(t *testing.T) {
	l := New()
	b, err := l.CommitBlock(123, WithPreviousHash("abc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.PreviousHash != "abc" {
		t.Fatalf("expected previous hash 'abc', got %s", b.PreviousHash)
	}
	if err := l.Verify(); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for detached link, got %v", err)
	}

	if _, err := l.CommitBlock(1, WithPreviousHash("")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty explicit hash, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("rejected commit must not append, chain length %d", l.Len())
	}
}

// TestAccessorsReturnCopies verifies that callers cannot reach into ledger
// internals through returned values.
func TestAccessorsReturnCopies(t *testing.T) {
	l := New()
	committed := commitOne(t, l, "original")
	digest := Digest(committed)

	committed.Transactions[0].Content = "changed via commit result"
	last := l.LastBlock()
	last.Transactions[0].Content = "changed via last block"
	blocks := l.Blocks()
	blocks[1].Transactions[0].Content = "changed via blocks"
	byIndex, err := l.GetByIndex(2)
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}
	byIndex.Transactions[0].Content = "changed via index"

	if got := Digest(l.LastBlock()); got != digest {
		t.Fatal("committed block changed through a returned copy")
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("chain should still verify: %v", err)
	}
}

// TestGetByIndexOutOfRange verifies the not-found error for bad indices.
func TestGetByIndexOutOfRange(t *testing.T) {
	l := New()
	for _, idx := range []int{0, -1, 2} {
		if _, err := l.GetByIndex(idx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("index %d: expected ErrNotFound, got %v", idx, err)
		}
	}
	if b, err := l.GetByIndex(1); err != nil || b.Index != 1 {
		t.Fatalf("index 1 should be genesis, got %+v, %v", b, err)
	}
}

// TestTimestampsAreNonDecreasing verifies timestamps follow the clock.
func TestTimestampsAreNonDecreasing(t *testing.T) {
	l := New(WithClock(fixedClock(time.Unix(1700000000, 0))))
	for i := 0; i < 5; i++ {
		commitOne(t, l, "x")
	}
	blocks := l.Blocks()
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Timestamp < blocks[i-1].Timestamp {
			t.Fatalf("timestamp decreased at block %d", blocks[i].Index)
		}
	}
	if blocks[0].Timestamp != 1700000000 {
		t.Fatalf("genesis timestamp should come from the clock, got %v", blocks[0].Timestamp)
	}
	if got := blocks[1].Time().Unix(); got != 1700000001 {
		t.Fatalf("Time() should convert back to the clock value, got %d", got)
	}
}

// TestConcurrentCommits verifies that parallel record/commit pairs never
// produce duplicate indices or broken links.
func TestConcurrentCommits(t *testing.T) {
	l := New()
	const workers = 16
	const perWorker = 20

	var wg sync.WaitGroup
	errChan := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := l.RecordTransaction(fmt.Sprintf("w%d-%d", w, i), VerdictUnsure, 50); err != nil {
					errChan <- err
					return
				}
				if _, err := l.CommitBlock(123); err != nil {
					errChan <- err
					return
				}
				_ = l.Lookup(strings.Repeat("0", 64), LookupLegacy)
			}
		}(w)
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		t.Fatalf("concurrent operation failed: %v", err)
	}

	if got := l.Len(); got != workers*perWorker+1 {
		t.Fatalf("expected %d blocks, got %d", workers*perWorker+1, got)
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("chain built concurrently failed verification: %v", err)
	}
	total := 0
	for _, b := range l.Blocks() {
		total += len(b.Transactions)
	}
	if total != workers*perWorker {
		t.Fatalf("expected %d transactions across blocks, got %d", workers*perWorker, total)
	}
}

// TestAnchor verifies that Anchor seals the pending buffer plus its own
// transaction into one linked block and validates like RecordTransaction.
func TestAnchor(t *testing.T) {
	l := New()
	if _, err := l.RecordTransaction("earlier", VerdictReal, 60); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	genesis := l.LastBlock()
	b, err := l.Anchor("now", VerdictMalicious, 99.999, 7)
	if err != nil {
		t.Fatalf("anchor failed: %v", err)
	}
	if b.Index != 2 || b.Proof != 7 || b.PreviousHash != Digest(genesis) {
		t.Fatalf("unexpected block header: %+v", b)
	}
	if len(b.Transactions) != 2 || b.Transactions[1].Content != "now" || b.Transactions[1].Confidence != "100.00%" {
		t.Fatalf("unexpected transactions: %+v", b.Transactions)
	}
	if len(l.Pending()) != 0 {
		t.Fatal("anchor should clear the pending buffer")
	}

	if _, err := l.Anchor("bad", "", 50, 7); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("invalid anchor must not append, got %d blocks", l.Len())
	}
}
