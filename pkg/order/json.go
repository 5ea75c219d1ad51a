package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/mr-tron/base58"
)

// intentJSON is the transport document. Every 64-bit field travels as a
// decimal string; owner is base58.
type intentJSON struct {
	OrderID  string `json:"order_id"`
	Owner    string `json:"owner"`
	Side     Side   `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Expiry   string `json:"expiry"`
}

var intentJSONKeys = []string{"order_id", "owner", "side", "price", "quantity", "expiry"}

// MarshalJSON implements json.Marshaler.
func (o OrderIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(intentJSON{
		OrderID:  formatUint64(o.orderID),
		Owner:    encodeOwner(o.owner),
		Side:     o.side,
		Price:    formatUint64(o.price),
		Quantity: formatUint64(o.quantity),
		Expiry:   formatUint64(o.expiry),
	})
}

// UnmarshalJSON implements json.Unmarshaler. It never routes a number
// through float64: numeric fields must be JSON strings.
func (o *OrderIntent) UnmarshalJSON(data []byte) error {
	decoded, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*o = decoded
	return nil
}

// ParseJSON decodes the transport document into a validated intent.
func ParseJSON(data []byte) (OrderIntent, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return OrderIntent{}, fmt.Errorf("intent: %w", err)
	}
	for _, key := range intentJSONKeys {
		if _, ok := raw[key]; !ok {
			return OrderIntent{}, fmt.Errorf("intent: missing field %q: %w", key, ErrMalformedJSON)
		}
	}
	if len(raw) != len(intentJSONKeys) {
		return OrderIntent{}, fmt.Errorf("intent: unexpected fields: %w", ErrMalformedJSON)
	}

	var f IntentFields
	if f.OrderID, err = uint64Field(raw, "order_id"); err != nil {
		return OrderIntent{}, err
	}
	ownerText, err := stringField(raw, "owner")
	if err != nil {
		return OrderIntent{}, err
	}
	if f.Owner, err = decodeOwner(ownerText); err != nil {
		return OrderIntent{}, err
	}
	if err := f.Side.UnmarshalJSON(raw["side"]); err != nil {
		return OrderIntent{}, fmt.Errorf("intent: %w", err)
	}
	if f.Price, err = uint64Field(raw, "price"); err != nil {
		return OrderIntent{}, err
	}
	if f.Quantity, err = uint64Field(raw, "quantity"); err != nil {
		return OrderIntent{}, err
	}
	if f.Expiry, err = uint64Field(raw, "expiry"); err != nil {
		return OrderIntent{}, err
	}
	return NewOrderIntent(f)
}

// decodeObject splits one JSON object into its members. Duplicate keys and
// anything after the closing brace are rejected, so a document has exactly
// one reading.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object: %w", ErrMalformedJSON)
	}

	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("bad object key: %w", ErrMalformedJSON)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("bad object key: %w", ErrMalformedJSON)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("duplicate field %q: %w", key, ErrMalformedJSON)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, ErrMalformedJSON)
		}
		fields[key] = value
	}

	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, fmt.Errorf("unterminated object: %w", ErrMalformedJSON)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after object: %w", ErrMalformedJSON)
	}
	return fields, nil
}

func stringField(raw map[string]json.RawMessage, key string) (string, error) {
	v := bytes.TrimSpace(raw[key])
	if len(v) == 0 || v[0] != '"' {
		return "", fmt.Errorf("intent: %s must be a string: %w", key, ErrMalformedJSON)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("intent: %s: %w", key, ErrMalformedJSON)
	}
	return s, nil
}

func uint64Field(raw map[string]json.RawMessage, key string) (uint64, error) {
	s, err := stringField(raw, key)
	if err != nil {
		return 0, err
	}
	n, err := ParseUint64(s)
	if err != nil {
		return 0, fmt.Errorf("intent: %s: %w", key, err)
	}
	return n, nil
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// ParseUint64 parses a decimal string of ASCII digits. A leading '-' is a
// range error; any other non-digit content is malformed.
func ParseUint64(s string) (uint64, error) {
	digits := s
	negative := false
	if len(digits) > 0 && digits[0] == '-' {
		negative = true
		digits = digits[1:]
	}
	if digits == "" {
		return 0, fmt.Errorf("empty decimal %q: %w", s, ErrMalformedJSON)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("not a decimal %q: %w", s, ErrMalformedJSON)
		}
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return 0, fmt.Errorf("not a decimal %q: %w", s, ErrMalformedJSON)
	}
	if negative {
		return 0, fmt.Errorf("negative value %q: %w", s, ErrFieldRange)
	}
	if n.Cmp(maxUint64) > 0 {
		return 0, fmt.Errorf("value %q exceeds 64 bits: %w", s, ErrFieldRange)
	}
	return n.Uint64(), nil
}

func formatUint64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func encodeOwner(o Owner) string {
	return base58.Encode(o[:])
}

// ParseOwner decodes a base58 owner key.
func ParseOwner(s string) (Owner, error) {
	return decodeOwner(s)
}

func decodeOwner(s string) (Owner, error) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != OwnerSize {
		return Owner{}, fmt.Errorf("intent: owner %q is not a base58 %d-byte key: %w", s, OwnerSize, ErrMalformedJSON)
	}
	var o Owner
	copy(o[:], b)
	return o, nil
}
