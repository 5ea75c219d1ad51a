package order

import (
	"encoding/hex"
	"fmt"
	"time"
)

// OwnerSize is the length of an owner public key.
const OwnerSize = 32

// Owner is the 32-byte ed25519 public key that must sign the intent.
type Owner [OwnerSize]byte

// Hex returns the lowercase hex form of the key (no 0x prefix).
func (o Owner) Hex() string {
	return hex.EncodeToString(o[:])
}

// String returns the base58 form, the convention wallets display.
func (o Owner) String() string {
	return encodeOwner(o)
}

// IntentFields carries caller input for NewOrderIntent.
type IntentFields struct {
	OrderID  uint64
	Owner    Owner
	Side     Side
	Price    uint64
	Quantity uint64
	Expiry   uint64 // unix milliseconds
}

// OrderIntent is an unsigned request to trade. It is immutable: fields are
// only readable through accessors and a change means building a new intent.
// Two intents are equal iff == holds.
type OrderIntent struct {
	orderID  uint64
	owner    Owner
	side     Side
	price    uint64
	quantity uint64
	expiry   uint64
}

// NewOrderIntent validates f and returns the intent.
// Price and quantity must be non-zero and side must be Buy or Sell.
func NewOrderIntent(f IntentFields) (OrderIntent, error) {
	if !f.Side.Valid() {
		return OrderIntent{}, fmt.Errorf("side tag %d: %w", uint8(f.Side), ErrInvalidDiscriminant)
	}
	if f.Price == 0 {
		return OrderIntent{}, fmt.Errorf("price must be > 0: %w", ErrFieldRange)
	}
	if f.Quantity == 0 {
		return OrderIntent{}, fmt.Errorf("quantity must be > 0: %w", ErrFieldRange)
	}
	return OrderIntent{
		orderID:  f.OrderID,
		owner:    f.Owner,
		side:     f.Side,
		price:    f.Price,
		quantity: f.Quantity,
		expiry:   f.Expiry,
	}, nil
}

func (o OrderIntent) OrderID() uint64  { return o.orderID }
func (o OrderIntent) Owner() Owner     { return o.owner }
func (o OrderIntent) Side() Side       { return o.side }
func (o OrderIntent) Price() uint64    { return o.price }
func (o OrderIntent) Quantity() uint64 { return o.quantity }
func (o OrderIntent) Expiry() uint64   { return o.expiry }

// Fields returns a copy of the intent's fields, e.g. to derive a modified intent.
func (o OrderIntent) Fields() IntentFields {
	return IntentFields{
		OrderID:  o.orderID,
		Owner:    o.owner,
		Side:     o.side,
		Price:    o.price,
		Quantity: o.quantity,
		Expiry:   o.expiry,
	}
}

// ExpiryTime converts the millisecond expiry to a time.Time.
func (o OrderIntent) ExpiryTime() time.Time {
	return time.UnixMilli(int64(o.expiry))
}

// Expired reports whether the intent's expiry is at or before now.
func (o OrderIntent) Expired(now time.Time) bool {
	ms := now.UnixMilli()
	if ms < 0 {
		return false
	}
	return o.expiry <= uint64(ms)
}

// ExpiryAfter returns the expiry value (unix ms) d after now.
func ExpiryAfter(now time.Time, d time.Duration) uint64 {
	return uint64(now.Add(d).UnixMilli())
}
