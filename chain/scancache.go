package chain

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// ScanCache keeps recent vault scan results in a local badger store so that
// paging through a dual-source listing does not re-query the network for
// every page. Entries expire on their own via TTL.
type ScanCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenScanCache opens the badger store at path. An empty path keeps the cache
// fully in memory.
func OpenScanCache(path string, ttl time.Duration) (*ScanCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open scan cache")
	}
	return &ScanCache{db: db, ttl: ttl}, nil
}

func (s *ScanCache) Close() error {
	return s.db.Close()
}

// Get returns the cached scan for the address, if a live entry exists.
func (s *ScanCache) Get(address string) ([]models.Transaction, bool) {
	var txs []models.Transaction
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(address))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &txs)
	})
	if err != nil {
		return nil, false
	}
	return txs, true
}

// Put stores the scan result under the address with the cache TTL.
func (s *ScanCache) Put(address string, txs []models.Transaction) error {
	raw, err := json.Marshal(txs)
	if err != nil {
		return errors.Wrap(err, "encode scan result")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(address), raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}
