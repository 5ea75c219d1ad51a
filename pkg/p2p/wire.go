package p2p

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/uhyunpark/frmdex/pkg/order"
	"github.com/uhyunpark/frmdex/pkg/sequencer"
	"github.com/uhyunpark/frmdex/pkg/transaction"
)

func init() {
	gob.Register(BatchWire{})
}

// OrderWire is one sequenced order. Intent is the 65-byte binary encoding.
type OrderWire struct {
	Seq        uint64
	AcceptedAt int64 // unix ms
	Intent     []byte
	Signature  []byte
}

// BatchWire is a drained batch in sequence order.
type BatchWire struct {
	Orders []OrderWire
}

func toBatchWire(batch []sequencer.Sequenced) BatchWire {
	w := BatchWire{Orders: make([]OrderWire, len(batch))}
	for i, sq := range batch {
		w.Orders[i] = OrderWire{
			Seq:        sq.Seq,
			AcceptedAt: sq.AcceptedAt.UnixMilli(),
			Intent:     sq.Order.Intent.Encode(),
			Signature:  sq.Order.Signature,
		}
	}
	return w
}

// fromOrderWire decodes and re-verifies one gossiped order. Peers are not
// trusted: a forged signature fails here exactly as it would at intake.
func fromOrderWire(w OrderWire, v *transaction.Verifier) (sequencer.Sequenced, error) {
	intent, err := order.Decode(w.Intent)
	if err != nil {
		return sequencer.Sequenced{}, fmt.Errorf("seq %d: %w", w.Seq, err)
	}
	so := transaction.SignedOrder{Intent: intent, Signature: w.Signature}
	if err := v.VerifySignedOrder(so); err != nil {
		return sequencer.Sequenced{}, fmt.Errorf("seq %d: %w", w.Seq, err)
	}
	return sequencer.Sequenced{
		Receipt: sequencer.Receipt{
			Seq:        w.Seq,
			OrderHash:  intent.Hash(),
			AcceptedAt: time.UnixMilli(w.AcceptedAt),
		},
		Order: so,
	}, nil
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
func gobDecode(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
