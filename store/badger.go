// Package store provides durable Store implementations for the ledger.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger"

	"github.com/luca-patrignani/newsledger/ledger"
)

var (
	blockPrefix  = []byte("b/")
	lastIndexKey = []byte("lh")
)

// ErrOutOfOrder is returned when a block does not directly follow the last
// stored one.
var ErrOutOfOrder = errors.New("store: block out of order")

// Badger persists blocks in a badger database, one JSON value per block keyed
// by its big-endian index.
type Badger struct {
	db     *badger.DB
	mu     sync.Mutex
	last   int
	logger *slog.Logger
}

// OpenBadger opens (or creates) the database in dir. A stale LOCK file left
// by a crashed process is removed and the open retried once with value log
// truncation enabled.
func OpenBadger(dir string, logger *slog.Logger) (*Badger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(slogAdapter{logger})

	db, err := openDB(dir, opts, logger)
	if err != nil {
		return nil, err
	}
	s := &Badger{db: db, logger: logger}
	if err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastIndexKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		s.last = int(binary.BigEndian.Uint64(val))
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading last index: %w", err)
	}
	return s, nil
}

func openDB(dir string, opts badger.Options, logger *slog.Logger) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "LOCK") {
		return nil, err
	}
	if rmErr := os.Remove(filepath.Join(dir, "LOCK")); rmErr != nil {
		return nil, fmt.Errorf("removing LOCK: %w (open: %v)", rmErr, err)
	}
	retryOpts := opts
	retryOpts.Truncate = true
	db, err = badger.Open(retryOpts)
	if err != nil {
		logger.Error("could not unlock database", "dir", dir, "error", err)
		return nil, err
	}
	logger.Warn("database unlocked, value log truncated", "dir", dir)
	return db, nil
}

func blockKey(index int) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], uint64(index))
	return key
}

// Load returns every stored block ordered by index.
func (s *Badger) Load() ([]ledger.Block, error) {
	var blocks []ledger.Block
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(blockPrefix); it.ValidForPrefix(blockPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var b ledger.Block
			if err := json.Unmarshal(val, &b); err != nil {
				return fmt.Errorf("decoding block %x: %w", it.Item().Key(), err)
			}
			blocks = append(blocks, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// Append writes b and advances the last index in a single transaction.
func (s *Badger) Append(b ledger.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Index != s.last+1 {
		return fmt.Errorf("%w: expected index %d, got %d", ErrOutOfOrder, s.last+1, b.Index)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	last := make([]byte, 8)
	binary.BigEndian.PutUint64(last, uint64(b.Index))

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(blockKey(b.Index), data); err != nil {
			return err
		}
		return txn.Set(lastIndexKey, last)
	})
	if err != nil {
		return err
	}
	s.last = b.Index
	return nil
}

// Close closes the database.
func (s *Badger) Close() error {
	return s.db.Close()
}

// slogAdapter routes badger's internal logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (a slogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (a slogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (a slogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
