package storage

import (
	"fmt"

	"github.com/uhyunpark/frmdex/pkg/order"
)

// Key schema for the Pebble ledger:
//
//   ord:<owner hex>:<order_id %020d> → Record (seq | intent | signature)
//   seq                              → last assigned sequence number
//
// order_id is zero-padded so a prefix scan returns an owner's orders in id order.

const (
	prefixOrder = "ord:"
	keyLastSeq  = "seq"
)

// orderKey returns the key for an order
// Format: "ord:{owner hex}:{orderID}"
func orderKey(owner order.Owner, orderID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixOrder, owner.Hex(), orderID))
}

// orderPrefix returns the prefix for all orders of an owner
// Format: "ord:{owner hex}:"
func orderPrefix(owner order.Owner) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, owner.Hex()))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
