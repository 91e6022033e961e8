// Package ledger implements an append-only, hash-chained log of news
// verification records.
//
// # Core Components
//
// Ledger: The ordered block sequence plus a buffer of pending transactions.
// Transactions are recorded into the buffer and sealed into the chain by
// CommitBlock.
//
// Block: One committed unit holding the transactions that were pending when
// it was created, an opaque proof tag and the digest of its predecessor.
//
// # Digests
//
// Digest hashes a canonical JSON rendering of a block (keys sorted at every
// level, no whitespace) with SHA-256. The digest is what end users receive as
// a "block hash" and later hand back to Lookup.
//
// # Security Properties
//
// The chain provides:
//   - Append-only history: committed blocks are never modified or removed
//   - Tamper evidence: every block stores the digest of its predecessor
//   - Verifiability: Verify walks the whole chain and reports the first break
//
// There is no consensus and no proof-of-work; the proof field is a tag chosen
// by the caller.
//
// # Usage
//
// Create a ledger with New (in memory) or Open (backed by a Store), call
// RecordTransaction for each verification event and CommitBlock to seal it.
package ledger
