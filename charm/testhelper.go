// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Uses temporary directories with BadgerDB for test isolation

package charm

import (
	"errors"
	"testing"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

// badgerKV provides the charm/kv.KV surface over a plain BadgerDB
// for testing without requiring server connectivity.
type badgerKV struct {
	db *badger.DB
}

func (b *badgerKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return kv.ErrMissingKey
		}
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (b *badgerKV) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerKV) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (b *badgerKV) Sync() error {
	// Nothing to sync with
	return nil
}

func (b *badgerKV) Reset() error {
	return b.db.DropAll()
}

// NewTestClient creates a charm client backed by BadgerDB in a temporary directory.
// The database is closed when the test finishes.
func NewTestClient(t *testing.T) *Client {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir()).
		WithLogger(nil) // Suppress badger logs in tests

	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return &Client{
		kv:     &badgerKV{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
	}
}
