package order

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Side is the order direction. It is a closed two-variant tag without payload.
type Side uint8

const (
	Buy  Side = 0
	Sell Side = 1
)

// String returns the variant name ("Buy" or "Sell").
func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the two variants.
func (s Side) Valid() bool {
	switch s {
	case Buy, Sell:
		return true
	default:
		return false
	}
}

// Encode returns the one-byte discriminant: 0 for Buy, 1 for Sell.
func (s Side) Encode() byte {
	return byte(s)
}

// DecodeSide maps a discriminant byte back to a Side.
func DecodeSide(b byte) (Side, error) {
	switch b {
	case 0:
		return Buy, nil
	case 1:
		return Sell, nil
	default:
		return 0, fmt.Errorf("side tag %d: %w", b, ErrInvalidDiscriminant)
	}
}

// ParseSide parses the exact variant name.
func ParseSide(name string) (Side, error) {
	switch name {
	case "Buy":
		return Buy, nil
	case "Sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("side kind %q: %w", name, ErrInvalidDiscriminant)
	}
}

// sideJSON is the wire shape {"kind":"Buy"}.
type sideJSON struct {
	Kind string `json:"kind"`
}

// MarshalJSON emits {"kind":"Buy"} or {"kind":"Sell"}.
func (s Side) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("side tag %d: %w", uint8(s), ErrInvalidDiscriminant)
	}
	return json.Marshal(sideJSON{Kind: s.String()})
}

// UnmarshalJSON accepts only an object with a single string "kind" field.
func (s *Side) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("side: %w", err)
	}
	kindRaw, ok := raw["kind"]
	if !ok || len(raw) != 1 {
		return fmt.Errorf("side: expected exactly one field \"kind\": %w", ErrMalformedJSON)
	}
	if len(bytes.TrimSpace(kindRaw)) == 0 || bytes.TrimSpace(kindRaw)[0] != '"' {
		return fmt.Errorf("side: kind must be a string: %w", ErrMalformedJSON)
	}
	var kind string
	if err := json.Unmarshal(kindRaw, &kind); err != nil {
		return fmt.Errorf("side: kind must be a string: %w", ErrMalformedJSON)
	}
	parsed, err := ParseSide(kind)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
