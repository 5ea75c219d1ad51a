package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/frmdex/pkg/order"
)

// PebbleLedger persists claimed orders in Pebble.
// Claim is serialized by mu so the existence check and the write are atomic.
type PebbleLedger struct {
	mu sync.Mutex
	db *pebble.DB
}

// OpenPebbleLedger opens (or creates) a ledger at path. A nil opts uses the
// node defaults.
func OpenPebbleLedger(path string, opts *pebble.Options) (*PebbleLedger, error) {
	if opts == nil {
		opts = &pebble.Options{
			Cache:        pebble.NewCache(32 << 20), // 32MB cache
			MemTableSize: 16 << 20,                  // 16MB memtable
			MaxOpenFiles: 1000,
			BytesPerSync: 512 << 10, // 512KB
		}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &PebbleLedger{db: db}, nil
}

// Close closes the database
func (l *PebbleLedger) Close() error { return l.db.Close() }

// Claim stores the record and advances the last sequence number in one
// synced batch.
func (l *PebbleLedger) Claim(r Record) error {
	key := orderKey(r.Order.Intent.Owner(), r.Order.Intent.OrderID())

	l.mu.Lock()
	defer l.mu.Unlock()

	_, closer, err := l.db.Get(key)
	if err == nil {
		closer.Close()
		return ErrDuplicateOrder
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("failed to check order: %w", err)
	}

	last, err := l.lastSeqLocked()
	if err != nil {
		return err
	}

	batch := l.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, encodeRecord(r), nil); err != nil {
		return fmt.Errorf("failed to stage order: %w", err)
	}
	if r.Seq > last {
		if err := batch.Set([]byte(keyLastSeq), seqValue(r.Seq), nil); err != nil {
			return fmt.Errorf("failed to stage seq: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// Get loads a claimed order
func (l *PebbleLedger) Get(owner order.Owner, orderID uint64) (Record, bool, error) {
	data, closer, err := l.db.Get(orderKey(owner, orderID))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to get order: %w", err)
	}
	defer closer.Close()

	r, err := decodeRecord(data)
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// ListByOwner loads all claimed orders of an owner, in order_id order
func (l *PebbleLedger) ListByOwner(owner order.Owner) ([]Record, error) {
	prefix := orderPrefix(owner)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []Record
	for iter.First(); iter.Valid(); iter.Next() {
		r, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", iter.Key(), err)
		}
		out = append(out, r)
	}
	return out, iter.Error()
}

// LastSeq returns the highest sequence number claimed so far (0 if none)
func (l *PebbleLedger) LastSeq() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeqLocked()
}

func (l *PebbleLedger) lastSeqLocked() (uint64, error) {
	val, closer, err := l.db.Get([]byte(keyLastSeq))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get seq: %w", err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, fmt.Errorf("seq: got %d bytes, want 8", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}
