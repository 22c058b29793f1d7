package badger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/storage"
)

const (
	codeSnapshot       = 5
	codeLatestSnapshot = 6
)

// Snapshots implements storage.Snapshots. Snapshots can hold the full
// wallet state, so they are stored CBOR-encoded rather than as JSON.
type Snapshots struct {
	db *badger.DB
}

func NewSnapshots(db *badger.DB) *Snapshots {
	return &Snapshots{db: db}
}

func snapshotKey(height uint64) []byte {
	key := []byte{codeSnapshot}
	return binary.BigEndian.AppendUint64(key, height)
}

func (s *Snapshots) Store(snapshot *state.Snapshot) error {

	val, err := cbor.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}

	return s.db.Update(func(tx *badger.Txn) error {
		err := tx.Set(snapshotKey(snapshot.Height), val)
		if err != nil {
			return fmt.Errorf("could not store snapshot: %w", err)
		}

		latest := binary.BigEndian.AppendUint64(nil, snapshot.Height)
		err = tx.Set([]byte{codeLatestSnapshot}, latest)
		if err != nil {
			return fmt.Errorf("could not update latest snapshot height: %w", err)
		}
		return nil
	})
}

func (s *Snapshots) ByHeight(height uint64) (*state.Snapshot, error) {
	var snapshot state.Snapshot
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(snapshotKey(height))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not load snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &snapshot)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Snapshots) Latest() (*state.Snapshot, error) {

	var height uint64
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte{codeLatestSnapshot})
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not load latest snapshot height: %w", err)
		}
		return item.Value(func(val []byte) error {
			height = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.ByHeight(height)
}
