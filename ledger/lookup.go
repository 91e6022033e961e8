package ledger

// LookupMode selects how Lookup matches a target hash against the chain.
type LookupMode int

const (
	// LookupStrict only matches recomputed block digests.
	LookupStrict LookupMode = iota
	// LookupLegacy also matches a block's stored previous hash and reports
	// that case as Tampered. It mirrors how the first version of the service
	// answered lookups; a previous-hash match says nothing about the
	// integrity of the matched block's content.
	LookupLegacy
)

// LookupResult is the answer to a hash lookup.
type LookupResult struct {
	Found        bool          `json:"found"`
	Tampered     bool          `json:"tampered"`
	BlockIndex   int           `json:"block_index"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// FindByDigest scans the chain oldest to newest and returns the first block
// whose digest equals target.
func (l *Ledger) FindByDigest(target string) (BlockView, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, b := range l.blocks {
		if Digest(b) == target {
			return b.View(), true
		}
	}
	return BlockView{}, false
}

// Lookup resolves target to a block. A miss is reported as Found == false,
// never as an error.
//
// In LookupLegacy mode each block is checked for a digest match first and a
// stored previous hash match second; the first block satisfying either wins.
func (l *Ledger) Lookup(target string, mode LookupMode) LookupResult {
	if target == "" {
		return LookupResult{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, b := range l.blocks {
		if Digest(b) == target {
			return found(b, false)
		}
		if mode == LookupLegacy && b.PreviousHash == target {
			return found(b, true)
		}
	}
	return LookupResult{}
}

func found(b Block, tampered bool) LookupResult {
	return LookupResult{
		Found:        true,
		Tampered:     tampered,
		BlockIndex:   b.Index,
		Timestamp:    b.Timestamp,
		Transactions: copyTransactions(b.Transactions),
	}
}
