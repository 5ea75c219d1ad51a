package order

import (
	"encoding/binary"
	"fmt"
)

// Binary layout, little-endian, no padding, no version byte:
//
//	order_id(8) | owner(32) | side(1) | price(8) | quantity(8) | expiry(8)
//
// Adding a field changes EncodedLen and breaks every existing decoder.
const (
	offOrderID  = 0
	offOwner    = offOrderID + 8
	offSide     = offOwner + OwnerSize
	offPrice    = offSide + 1
	offQuantity = offPrice + 8
	offExpiry   = offQuantity + 8

	// EncodedLen is the exact size of a binary intent.
	EncodedLen = offExpiry + 8
)

// AppendEncode appends the 65-byte encoding of o to dst.
func (o OrderIntent) AppendEncode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, o.orderID)
	dst = append(dst, o.owner[:]...)
	dst = append(dst, o.side.Encode())
	dst = binary.LittleEndian.AppendUint64(dst, o.price)
	dst = binary.LittleEndian.AppendUint64(dst, o.quantity)
	dst = binary.LittleEndian.AppendUint64(dst, o.expiry)
	return dst
}

// Encode returns the 65-byte binary encoding. It is meant for compact storage
// and transmission; signatures are computed over CanonicalMessage instead.
func (o OrderIntent) Encode() []byte {
	return o.AppendEncode(make([]byte, 0, EncodedLen))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (o OrderIntent) MarshalBinary() ([]byte, error) {
	return o.Encode(), nil
}

// Decode parses exactly EncodedLen bytes. Shorter or longer input is
// rejected rather than truncated.
func Decode(b []byte) (OrderIntent, error) {
	switch {
	case len(b) < EncodedLen:
		return OrderIntent{}, fmt.Errorf("intent: got %d bytes, need %d: %w", len(b), EncodedLen, ErrTruncatedInput)
	case len(b) > EncodedLen:
		return OrderIntent{}, fmt.Errorf("intent: got %d bytes, need %d: %w", len(b), EncodedLen, ErrExcessInput)
	}

	side, err := DecodeSide(b[offSide])
	if err != nil {
		return OrderIntent{}, fmt.Errorf("intent byte %d: %w", offSide, err)
	}

	var owner Owner
	copy(owner[:], b[offOwner:offSide])

	return NewOrderIntent(IntentFields{
		OrderID:  binary.LittleEndian.Uint64(b[offOrderID:]),
		Owner:    owner,
		Side:     side,
		Price:    binary.LittleEndian.Uint64(b[offPrice:]),
		Quantity: binary.LittleEndian.Uint64(b[offQuantity:]),
		Expiry:   binary.LittleEndian.Uint64(b[offExpiry:]),
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (o *OrderIntent) UnmarshalBinary(b []byte) error {
	decoded, err := Decode(b)
	if err != nil {
		return err
	}
	*o = decoded
	return nil
}
