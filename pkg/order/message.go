package order

import (
	"encoding/json"
	"strconv"
)

// SigningPrefix namespaces signed order messages so they cannot collide
// with any other payload the same key signs.
const SigningPrefix = "FRM_DEX_ORDER:"

// OwnerEncodingByteArray names the owner representation used inside the
// canonical message: a JSON array of 32 decimal byte values. Signer and
// verifier must agree on it; it is not configurable.
const OwnerEncodingByteArray = "byte-array"

// canonicalOrder fixes the key order of the signed document. encoding/json
// emits struct fields in declaration order.
type canonicalOrder struct {
	OrderID  string     `json:"order_id"`
	Owner    ownerArray `json:"owner"`
	Side     Side       `json:"side"`
	Price    string     `json:"price"`
	Quantity string     `json:"quantity"`
	Expiry   string     `json:"expiry"`
}

type ownerArray Owner

// MarshalJSON writes [b0,b1,...,b31] with no whitespace.
func (a ownerArray) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+OwnerSize*4)
	out = append(out, '[')
	for i, b := range a {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(b), 10)
	}
	return append(out, ']'), nil
}

// CanonicalMessage returns the exact bytes a wallet signs for o:
//
//	FRM_DEX_ORDER:{"order_id":"1","owner":[0,...],"side":{"kind":"Buy"},"price":"100","quantity":"500","expiry":"1770595200000"}
//
// Integers are decimal strings so no implementation routes them through a
// float. The output is identical for equal intents on any host.
func CanonicalMessage(o OrderIntent) []byte {
	body, err := json.Marshal(canonicalOrder{
		OrderID:  strconv.FormatUint(o.orderID, 10),
		Owner:    ownerArray(o.owner),
		Side:     o.side,
		Price:    strconv.FormatUint(o.price, 10),
		Quantity: strconv.FormatUint(o.quantity, 10),
		Expiry:   strconv.FormatUint(o.expiry, 10),
	})
	if err != nil {
		// Only reachable for an intent not built by NewOrderIntent or Decode.
		panic("order: canonical message: " + err.Error())
	}
	msg := make([]byte, 0, len(SigningPrefix)+len(body))
	msg = append(msg, SigningPrefix...)
	return append(msg, body...)
}

// CanonicalMessage is a method form of the package function.
func (o OrderIntent) CanonicalMessage() []byte {
	return CanonicalMessage(o)
}
