package storage

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/uhyunpark/frmdex/pkg/order"
	"github.com/uhyunpark/frmdex/pkg/transaction"
)

// ErrDuplicateOrder is returned when (owner, order_id) was already claimed.
var ErrDuplicateOrder = errors.New("duplicate order")

// Record is an accepted signed order with its sequence number.
type Record struct {
	Seq   uint64
	Order transaction.SignedOrder
}

// Ledger is the uniqueness ledger keyed by (owner, order_id). It guards the
// sequencer against replays of an already accepted signed order.
type Ledger interface {
	// Claim stores r unless its (owner, order_id) exists, in which case it
	// returns ErrDuplicateOrder. It also records r.Seq as the last sequence.
	Claim(r Record) error
	Get(owner order.Owner, orderID uint64) (Record, bool, error)
	ListByOwner(owner order.Owner) ([]Record, error)
	LastSeq() (uint64, error)
	Close() error
}

type ledgerKey struct {
	owner   order.Owner
	orderID uint64
}

// MemoryLedger is a map-backed Ledger for tests and single-run nodes.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[ledgerKey]Record
	lastSeq uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[ledgerKey]Record)}
}

func (l *MemoryLedger) Claim(r Record) error {
	k := ledgerKey{owner: r.Order.Intent.Owner(), orderID: r.Order.Intent.OrderID()}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[k]; ok {
		return ErrDuplicateOrder
	}
	l.records[k] = r
	if r.Seq > l.lastSeq {
		l.lastSeq = r.Seq
	}
	return nil
}

func (l *MemoryLedger) Get(owner order.Owner, orderID uint64) (Record, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[ledgerKey{owner: owner, orderID: orderID}]
	return r, ok, nil
}

func (l *MemoryLedger) ListByOwner(owner order.Owner) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for k, r := range l.records {
		if k.owner == owner {
			out = append(out, r)
		}
	}
	sortByOrderID(out)
	return out, nil
}

func (l *MemoryLedger) LastSeq() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq, nil
}

func (l *MemoryLedger) Close() error { return nil }

func sortByOrderID(rs []Record) {
	slices.SortFunc(rs, func(a, b Record) int {
		return cmp.Compare(a.Order.Intent.OrderID(), b.Order.Intent.OrderID())
	})
}

var (
	_ Ledger = (*MemoryLedger)(nil)
	_ Ledger = (*PebbleLedger)(nil)
)
