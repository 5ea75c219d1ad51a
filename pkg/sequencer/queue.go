package sequencer

import (
	"sync"

	"github.com/uhyunpark/frmdex/pkg/order"
)

// Queue holds accepted orders for the external matcher, FIFO by sequence
// number. Buy and sell orders share one queue; the matcher owns priority.
type Queue struct {
	mu      sync.Mutex
	pending []Sequenced
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an accepted order.
func (q *Queue) Push(s Sequenced) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, s)
}

// PushFront puts a drained batch back at the head of the queue, ahead of
// anything accepted since, keeping the batch's own order.
func (q *Queue) PushFront(batch []Sequenced) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := make([]Sequenced, 0, len(batch)+len(q.pending))
	pending = append(pending, batch...)
	q.pending = append(pending, q.pending...)
}

// Drain removes and returns up to max orders (all when max <= 0).
func (q *Queue) Drain(max int) []Sequenced {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if max > 0 && max < n {
		n = max
	}
	out := make([]Sequenced, n)
	copy(out, q.pending[:n])
	q.pending = q.pending[n:]
	return out
}

// Len returns total pending orders.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// CountBySide returns pending buy and sell counts (for metrics/status).
func (q *Queue) CountBySide() (buys, sells int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range q.pending {
		switch s.Order.Intent.Side() {
		case order.Buy:
			buys++
		case order.Sell:
			sells++
		}
	}
	return buys, sells
}
