package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/frmdex/pkg/storage"
	"github.com/uhyunpark/frmdex/pkg/transaction"
	"github.com/uhyunpark/frmdex/pkg/util"
)

// ErrExpired is returned for intents whose expiry is not in the future.
var ErrExpired = errors.New("order expired")

// Receipt acknowledges an accepted order.
type Receipt struct {
	Seq        uint64
	OrderHash  common.Hash
	AcceptedAt time.Time
}

// Sequenced is an accepted order with its position in the sequence.
type Sequenced struct {
	Receipt
	Order transaction.SignedOrder
}

// Sequencer verifies submissions, enforces expiry and (owner, order_id)
// uniqueness, numbers accepted orders and queues them.
type Sequencer struct {
	verifier *transaction.Verifier
	ledger   storage.Ledger
	clock    util.Clock
	queue    *Queue
	logger   *zap.SugaredLogger

	mu      sync.Mutex // serializes claim + seq assignment + enqueue
	nextSeq uint64

	// OnAccept is called after an order is queued (e.g. to broadcast it).
	OnAccept func(Sequenced)
	// VerboseLogging logs every accepted order at info level.
	VerboseLogging bool
}

// New creates a Sequencer that resumes numbering after the ledger's last sequence.
func New(ledger storage.Ledger, clock util.Clock, logger *zap.SugaredLogger) (*Sequencer, error) {
	last, err := ledger.LastSeq()
	if err != nil {
		return nil, fmt.Errorf("failed to read last seq: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sequencer{
		verifier: transaction.NewVerifier(),
		ledger:   ledger,
		clock:    clock,
		queue:    NewQueue(),
		logger:   logger,
		nextSeq:  last + 1,
	}, nil
}

// Submit runs a submission through verification, expiry and replay checks
// and returns the accepted order with its receipt. Failures are terminal for
// these bytes; nothing is retried.
func (s *Sequencer) Submit(ctx context.Context, sub *transaction.Submission) (Sequenced, error) {
	if err := ctx.Err(); err != nil {
		return Sequenced{}, err
	}

	so, err := s.verifier.Verify(sub)
	if err != nil {
		s.reject(err, sub)
		return Sequenced{}, err
	}

	intent := so.Intent
	now := s.clock.Now()
	if intent.Expired(now) {
		err := fmt.Errorf("order %d expired at %s: %w", intent.OrderID(), intent.ExpiryTime().UTC().Format(time.RFC3339), ErrExpired)
		s.reject(err, sub)
		return Sequenced{}, err
	}

	s.mu.Lock()
	seq := s.nextSeq
	if err := s.ledger.Claim(storage.Record{Seq: seq, Order: so}); err != nil {
		s.mu.Unlock()
		s.reject(err, sub)
		return Sequenced{}, err
	}
	s.nextSeq++
	accepted := Sequenced{
		Receipt: Receipt{Seq: seq, OrderHash: intent.Hash(), AcceptedAt: now},
		Order:   so,
	}
	s.queue.Push(accepted)
	s.mu.Unlock()

	if s.VerboseLogging {
		s.logger.Infow("order_accepted",
			"seq", seq,
			"order_id", intent.OrderID(),
			"owner", intent.Owner().String(),
			"side", intent.Side().String(),
			"price", intent.Price(),
			"quantity", intent.Quantity(),
			"order_hash", accepted.OrderHash.Hex())
	} else {
		s.logger.Debugw("order_accepted", "seq", seq, "order_hash", accepted.OrderHash.Hex())
	}

	if s.OnAccept != nil {
		s.OnAccept(accepted)
	}
	return accepted, nil
}

func (s *Sequencer) reject(err error, sub *transaction.Submission) {
	s.logger.Warnw("order_rejected",
		"kind", Kind(err),
		"err", err,
		"signature", sub.Signature)
}

// Drain removes up to max accepted orders in sequence order.
func (s *Sequencer) Drain(max int) []Sequenced {
	return s.queue.Drain(max)
}

// Requeue returns a batch that could not be delivered to the head of the
// queue so the next Drain hands it out again. Orders keep their sequence
// numbers; the ledger is not touched.
func (s *Sequencer) Requeue(batch []Sequenced) {
	s.queue.PushFront(batch)
}

// Deliver drains up to max orders and passes them to publish. If publish
// fails the batch is requeued at the head and returned with the error, so
// the next call retries the same orders first.
func (s *Sequencer) Deliver(ctx context.Context, max int, publish func(context.Context, []Sequenced) error) ([]Sequenced, error) {
	batch := s.Drain(max)
	if len(batch) == 0 || publish == nil {
		return batch, nil
	}
	if err := publish(ctx, batch); err != nil {
		s.Requeue(batch)
		return batch, err
	}
	return batch, nil
}

// Len returns the number of queued orders.
func (s *Sequencer) Len() int {
	return s.queue.Len()
}

// Queue exposes the pending queue (read-only use: Len, CountBySide).
func (s *Sequencer) Queue() *Queue {
	return s.queue
}

// Ledger returns the uniqueness ledger.
func (s *Sequencer) Ledger() storage.Ledger {
	return s.ledger
}

// Rejection kinds added by the sequencer.
const (
	KindExpired        = "Expired"
	KindDuplicateOrder = "DuplicateOrder"
)

// Kind extends transaction.ErrorKind with the sequencer's own rejections.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, storage.ErrDuplicateOrder):
		return KindDuplicateOrder
	default:
		return transaction.ErrorKind(err)
	}
}
