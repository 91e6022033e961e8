package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest returns the lower-case hex SHA-256 of the canonical serialization of b.
//
// Equal field values always give equal digests and a change to any field
// changes the digest. A nil transaction list hashes like an empty one.
//
// Digest panics only if b holds a non-finite timestamp, which no block built
// by a Ledger can.
func Digest(b Block) string {
	data, err := canonicalize(b)
	if err != nil {
		panic(fmt.Sprintf("ledger: block %d is not serializable: %v", b.Index, err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalize renders b as JSON with object keys sorted by name at every
// level. The struct is first encoded, then decoded into generic maps, whose
// keys the encoder always writes in sorted order.
func canonicalize(b Block) ([]byte, error) {
	if b.Transactions == nil {
		b.Transactions = []Transaction{}
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
