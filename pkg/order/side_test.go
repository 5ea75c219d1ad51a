package order

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSideEncodeDecode(t *testing.T) {
	tests := []struct {
		side Side
		tag  byte
	}{
		{Buy, 0},
		{Sell, 1},
	}
	for _, tt := range tests {
		t.Run(tt.side.String(), func(t *testing.T) {
			if got := tt.side.Encode(); got != tt.tag {
				t.Errorf("Encode() = %d, want %d", got, tt.tag)
			}
			got, err := DecodeSide(tt.tag)
			if err != nil {
				t.Fatalf("DecodeSide(%d): %v", tt.tag, err)
			}
			if got != tt.side {
				t.Errorf("DecodeSide(%d) = %v, want %v", tt.tag, got, tt.side)
			}
		})
	}
}

func TestDecodeSideInvalid(t *testing.T) {
	for _, tag := range []byte{2, 3, 0x7f, 0xff} {
		if _, err := DecodeSide(tag); !errors.Is(err, ErrInvalidDiscriminant) {
			t.Errorf("DecodeSide(%d) err = %v, want ErrInvalidDiscriminant", tag, err)
		}
	}
}

func TestSideJSON(t *testing.T) {
	b, err := json.Marshal(Sell)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"kind":"Sell"}` {
		t.Errorf("json = %s, want {\"kind\":\"Sell\"}", b)
	}

	var s Side
	if err := json.Unmarshal([]byte(`{"kind":"Buy"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != Buy {
		t.Errorf("side = %v, want Buy", s)
	}
}

func TestSideJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"unknown kind", `{"kind":"Hold"}`, ErrInvalidDiscriminant},
		{"lowercase kind", `{"kind":"buy"}`, ErrInvalidDiscriminant},
		{"numeric kind", `{"kind":0}`, ErrMalformedJSON},
		{"missing kind", `{}`, ErrMalformedJSON},
		{"extra field", `{"kind":"Buy","x":1}`, ErrMalformedJSON},
		{"duplicate kind", `{"kind":"Buy","kind":"Sell"}`, ErrMalformedJSON},
		{"duplicate identical kind", `{"kind":"Buy","kind":"Buy"}`, ErrMalformedJSON},
		{"plain string", `"Buy"`, ErrMalformedJSON},
		{"null", `null`, ErrMalformedJSON},
		{"encodable form", `{"Buy":{}}`, ErrMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Side
			err := s.UnmarshalJSON([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("UnmarshalJSON(%s) err = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("Sell"); err != nil || s != Sell {
		t.Errorf("ParseSide(Sell) = %v, %v", s, err)
	}
	if _, err := ParseSide("SELL"); !errors.Is(err, ErrInvalidDiscriminant) {
		t.Errorf("ParseSide(SELL) err = %v, want ErrInvalidDiscriminant", err)
	}
}
