package ledger

import (
	"fmt"
	"time"
)

// Verdict labels produced by the verification workflow.
const (
	VerdictReal      = "Real"
	VerdictFake      = "Fake"
	VerdictMalicious = "Malicious"
	VerdictUnsure    = "Unsure"
)

const (
	// GenesisPreviousHash is the sentinel stored in the first block.
	GenesisPreviousHash = "1"
	// GenesisProof is the proof tag of the first block.
	GenesisProof int64 = 100
)

// Transaction is one verification record.
type Transaction struct {
	Content    string `json:"content"`
	Verdict    string `json:"verdict"`
	Confidence string `json:"confidence"` // e.g. "87.50%"
}

// Block is a committed unit of the ledger.
type Block struct {
	Index        int           `json:"index"`     // 1-based position in the chain
	Timestamp    float64       `json:"timestamp"` // Unix seconds
	Transactions []Transaction `json:"transactions"`
	Proof        int64         `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// BlockView is the read-only projection returned by lookups.
type BlockView struct {
	Index        int           `json:"block_index"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// View projects b onto the fields exposed by lookups.
func (b Block) View() BlockView {
	return BlockView{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: copyTransactions(b.Transactions),
	}
}

// Time returns the block timestamp as a time.Time.
func (b Block) Time() time.Time {
	sec := int64(b.Timestamp)
	nsec := int64((b.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// FormatConfidence renders a percentage the way it is stored in transactions.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func copyTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

func (b Block) clone() Block {
	b.Transactions = copyTransactions(b.Transactions)
	return b
}
