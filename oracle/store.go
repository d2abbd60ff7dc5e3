package oracle

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gnkz/lz-ssr-oracle/pot"
)

var potBucket = []byte("potdata")

// Store persists the latest accepted record per chain in a bolt file, so an
// oracle restarted mid-run resumes from its last state instead of an
// uninitialized one. One file serves every follower in an emulation.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the bolt file at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open pot store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(potBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create pot bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes the packed record under the chain's key.
func (s *Store) Save(chainID uint64, d pot.Data) error {
	raw, err := d.Pack()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(potBucket).Put(chainKey(chainID), raw[:])
	})
}

// Load reads the record stored for the chain. The second return is false
// when the chain has never saved.
func (s *Store) Load(chainID uint64) (pot.Data, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(potBucket).Get(chainKey(chainID)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return pot.Data{}, false, err
	}
	if raw == nil {
		return pot.Data{}, false, nil
	}
	d, err := pot.Unpack(raw)
	if err != nil {
		return pot.Data{}, false, fmt.Errorf("stored record for chain %d: %w", chainID, err)
	}
	return d, true, nil
}

// Close releases the bolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

func chainKey(chainID uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, chainID)
	return key
}
