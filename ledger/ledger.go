package ledger

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
	"unicode/utf8"
)

// Store persists committed blocks. Append is called with the write lock held,
// before the block becomes visible to readers.
type Store interface {
	Load() ([]Block, error)
	Append(block Block) error
	Close() error
}

// Ledger maintains the append-only block sequence and the buffer of
// transactions waiting for the next block.
type Ledger struct {
	mu      sync.RWMutex  // Protects blocks and pending
	blocks  []Block       // Committed chain, never empty
	pending []Transaction // Recorded but not yet committed
	store   Store         // Optional write-through persistence
	clock   func() time.Time
	logger  *slog.Logger
}

type options struct {
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(options) options

// WithClock replaces time.Now as the source of block timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o options) options {
		o.clock = clock
		return o
	}
}

// WithLogger sets the logger used for commit diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o options) options {
		o.logger = logger
		return o
	}
}

func newLedger(opts []Option) *Ledger {
	o := options{clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		o = opt(o)
	}
	return &Ledger{
		blocks:  make([]Block, 0),
		pending: make([]Transaction, 0),
		clock:   o.clock,
		logger:  o.logger,
	}
}

// New creates an in-memory ledger holding only the genesis block
// (index 1, previous hash "1", proof 100, no transactions).
func New(opts ...Option) *Ledger {
	l := newLedger(opts)
	l.blocks = append(l.blocks, l.genesis())
	return l
}

// Open creates a ledger backed by store.
//
// If the store already holds a chain it is loaded and verified; a broken
// chain yields ErrIntegrity. An empty store receives a fresh genesis block.
func Open(store Store, opts ...Option) (*Ledger, error) {
	l := newLedger(opts)
	blocks, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: loading chain: %v", ErrStorage, err)
	}
	if len(blocks) == 0 {
		genesis := l.genesis()
		if err := store.Append(genesis); err != nil {
			return nil, fmt.Errorf("%w: writing genesis: %v", ErrStorage, err)
		}
		blocks = []Block{genesis}
	}
	if err := verifyChain(blocks); err != nil {
		return nil, err
	}
	l.blocks = blocks
	l.store = store
	l.logger.Info("ledger loaded", "blocks", len(blocks))
	return l, nil
}

func (l *Ledger) genesis() Block {
	return Block{
		Index:        1,
		Timestamp:    unixSeconds(l.clock()),
		Transactions: []Transaction{},
		Proof:        GenesisProof,
		PreviousHash: GenesisPreviousHash,
	}
}

// RecordTransaction adds a verification record to the pending buffer and
// returns the index of the block that will hold it.
//
// confidence is a percentage in [0, 100]; it is stored formatted with two
// decimals. verdict must be non-empty and both strings valid UTF-8, otherwise
// ErrInvalidArgument is returned and the buffer is unchanged.
//
// Thread-safety: This method is safe for concurrent access.
func (l *Ledger) RecordTransaction(content, verdict string, confidence float64) (int, error) {
	tx, err := newTransaction(content, verdict, confidence)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, tx)
	return l.blocks[len(l.blocks)-1].Index + 1, nil
}

func newTransaction(content, verdict string, confidence float64) (Transaction, error) {
	if verdict == "" {
		return Transaction{}, fmt.Errorf("%w: verdict is empty", ErrInvalidArgument)
	}
	if !utf8.ValidString(content) || !utf8.ValidString(verdict) {
		return Transaction{}, fmt.Errorf("%w: content and verdict must be valid UTF-8", ErrInvalidArgument)
	}
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) || confidence < 0 || confidence > 100 {
		return Transaction{}, fmt.Errorf("%w: confidence %v is not a percentage", ErrInvalidArgument, confidence)
	}
	return Transaction{
		Content:    content,
		Verdict:    verdict,
		Confidence: FormatConfidence(confidence),
	}, nil
}

type commitOptions struct {
	previousHash    string
	hasPreviousHash bool
}

// CommitOption configures a single CommitBlock call.
type CommitOption func(commitOptions) commitOptions

// WithPreviousHash stores hash as the new block's previous hash instead of
// the digest of the current last block. Verify reports such a block as a
// broken link unless hash happens to equal that digest.
func WithPreviousHash(hash string) CommitOption {
	return func(o commitOptions) commitOptions {
		o.previousHash = hash
		o.hasPreviousHash = true
		return o
	}
}

// CommitBlock seals the pending transactions into a new block and appends it.
//
// The block gets index len(chain)+1, the current time, the given proof tag
// and, unless WithPreviousHash is passed, the digest of the last block. When
// a Store is configured the block is written there first; if that fails
// ErrStorage is returned and neither the chain nor the pending buffer change.
//
// Thread-safety: This method is safe for concurrent access.
func (l *Ledger) CommitBlock(proof int64, opts ...CommitOption) (Block, error) {
	var o commitOptions
	for _, opt := range opts {
		o = opt(o)
	}
	if o.hasPreviousHash && o.previousHash == "" {
		return Block{}, fmt.Errorf("%w: explicit previous hash is empty", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seal(l.pending, proof, o)
}

// Anchor records one transaction and seals it into a new block in a single
// step. The block holds the transactions already pending followed by the new
// one. If validation or the store write fails, nothing is recorded: the
// chain and the pending buffer are exactly as before the call.
//
// Thread-safety: This method is safe for concurrent access.
func (l *Ledger) Anchor(content, verdict string, confidence float64, proof int64) (Block, error) {
	tx, err := newTransaction(content, verdict, confidence)
	if err != nil {
		return Block{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	txs := append(copyTransactions(l.pending), tx)
	return l.seal(txs, proof, commitOptions{})
}

// seal appends a block holding txs and clears the pending buffer. The caller
// holds the write lock.
func (l *Ledger) seal(txs []Transaction, proof int64, o commitOptions) (Block, error) {
	last := l.blocks[len(l.blocks)-1]
	previousHash := o.previousHash
	if !o.hasPreviousHash {
		previousHash = Digest(last)
	}

	block := Block{
		Index:        len(l.blocks) + 1,
		Timestamp:    unixSeconds(l.clock()),
		Transactions: copyTransactions(txs),
		Proof:        proof,
		PreviousHash: previousHash,
	}

	if l.store != nil {
		if err := l.store.Append(block); err != nil {
			return Block{}, fmt.Errorf("%w: block %d: %v", ErrStorage, block.Index, err)
		}
	}

	l.blocks = append(l.blocks, block)
	l.pending = make([]Transaction, 0)
	l.logger.Debug("block committed", "index", block.Index, "transactions", len(block.Transactions))

	return block.clone(), nil
}

// LastBlock returns a copy of the most recently appended block.
func (l *Ledger) LastBlock() Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.blocks[len(l.blocks)-1].clone()
}

// Len returns the number of committed blocks, genesis included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.blocks)
}

// GetByIndex returns a copy of the block with the given 1-based index.
func (l *Ledger) GetByIndex(index int) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 1 || index > len(l.blocks) {
		return Block{}, fmt.Errorf("%w: index %d out of range [1, %d]", ErrNotFound, index, len(l.blocks))
	}
	return l.blocks[index-1].clone(), nil
}

// Blocks returns a copy of the whole chain, oldest first.
func (l *Ledger) Blocks() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.clone()
	}
	return out
}

// Pending returns a copy of the transactions waiting for the next block.
func (l *Ledger) Pending() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return copyTransactions(l.pending)
}

// Close releases the backing store, if any.
func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Verify validates the integrity of the entire chain.
//
// Verification checks:
//   - Genesis block has index 1 and previous hash "1"
//   - Each block's index is its 1-based position
//   - Each block's previous hash is the digest of its predecessor
//
// Returns nil if the chain is valid, or an error wrapping ErrIntegrity that
// describes the first violation found.
//
// Thread-safety: This method is safe for concurrent access.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return verifyChain(l.blocks)
}

func verifyChain(blocks []Block) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: empty chain", ErrIntegrity)
	}
	if blocks[0].Index != 1 || blocks[0].PreviousHash != GenesisPreviousHash {
		return fmt.Errorf("%w: invalid genesis block", ErrIntegrity)
	}
	for i := 1; i < len(blocks); i++ {
		if err := validateBlock(blocks[i], blocks[i-1]); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrIntegrity, i+1, err)
		}
	}
	return nil
}

// validateBlock checks current against its predecessor: index continuity and
// previous hash linkage.
func validateBlock(current, previous Block) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
	}
	if expected := Digest(previous); current.PreviousHash != expected {
		return fmt.Errorf("invalid previous hash: expected %s, got %s", expected, current.PreviousHash)
	}
	return nil
}
