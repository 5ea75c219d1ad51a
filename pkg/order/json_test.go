package order

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const zeroOwnerBase58 = "11111111111111111111111111111111"

func TestJSONShape(t *testing.T) {
	b, err := json.Marshal(goldenIntent(t))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"order_id":"1","owner":"` + zeroOwnerBase58 + `","side":{"kind":"Buy"},"price":"100","quantity":"500","expiry":"1770595200000"}`
	if string(b) != want {
		t.Errorf("json =\n%s\nwant\n%s", b, want)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	intents := []IntentFields{
		{OrderID: 1, Side: Buy, Price: 100, Quantity: 500, Expiry: 1770595200000},
		{OrderID: ^uint64(0), Owner: sampleOwner(), Side: Sell, Price: 1 << 63, Quantity: ^uint64(0), Expiry: ^uint64(0)},
	}
	for _, f := range intents {
		in, _ := NewOrderIntent(f)
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out OrderIntent
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if out != in {
			t.Errorf("round trip = %+v, want %+v", out.Fields(), in.Fields())
		}
	}
}

func TestJSONMaxQuantity(t *testing.T) {
	doc := `{"order_id":"1","owner":"` + zeroOwnerBase58 + `","side":{"kind":"Sell"},"price":"100","quantity":"18446744073709551615","expiry":"1770595200000"}`
	o, err := ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if o.Quantity() != ^uint64(0) {
		t.Errorf("quantity = %d, want max uint64", o.Quantity())
	}
	b, _ := json.Marshal(o)
	if !strings.Contains(string(b), `"quantity":"18446744073709551615"`) {
		t.Errorf("max quantity lost precision: %s", b)
	}
}

func TestJSONErrors(t *testing.T) {
	doc := func(field, value string) string {
		fields := map[string]string{
			"order_id": `"1"`,
			"owner":    `"` + zeroOwnerBase58 + `"`,
			"side":     `{"kind":"Buy"}`,
			"price":    `"100"`,
			"quantity": `"500"`,
			"expiry":   `"1770595200000"`,
		}
		fields[field] = value
		var parts []string
		for _, k := range intentJSONKeys {
			if v := fields[k]; v != "" {
				parts = append(parts, `"`+k+`":`+v)
			}
		}
		return "{" + strings.Join(parts, ",") + "}"
	}

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not an object", `[1,2]`, ErrMalformedJSON},
		{"null", `null`, ErrMalformedJSON},
		{"truncated", `{"order_id":"1"`, ErrMalformedJSON},
		{"missing price", doc("price", ""), ErrMalformedJSON},
		{"extra field", strings.TrimSuffix(doc("price", `"1"`), "}") + `,"leverage":"10"}`, ErrMalformedJSON},
		{"duplicate order_id", strings.TrimSuffix(doc("price", `"100"`), "}") + `,"order_id":"2"}`, ErrMalformedJSON},
		{"repeated identical field", strings.TrimSuffix(doc("price", `"100"`), "}") + `,"price":"100"}`, ErrMalformedJSON},
		{"duplicate side kind", doc("side", `{"kind":"Buy","kind":"Sell"}`), ErrMalformedJSON},
		{"trailing data", doc("price", `"100"`) + `{}`, ErrMalformedJSON},
		{"numeric price", doc("price", `100`), ErrMalformedJSON},
		{"float price", doc("price", `"1.5"`), ErrMalformedJSON},
		{"plus sign", doc("price", `"+5"`), ErrMalformedJSON},
		{"empty string", doc("expiry", `""`), ErrMalformedJSON},
		{"negative quantity", doc("quantity", `"-5"`), ErrFieldRange},
		{"overflow", doc("order_id", `"18446744073709551616"`), ErrFieldRange},
		{"zero price", doc("price", `"0"`), ErrFieldRange},
		{"bad owner", doc("owner", `"0OIl"`), ErrMalformedJSON},
		{"short owner", doc("owner", `"1111"`), ErrMalformedJSON},
		{"owner byte array", doc("owner", `[0,0]`), ErrMalformedJSON},
		{"bad side", doc("side", `{"kind":"Short"}`), ErrInvalidDiscriminant},
		{"side string", doc("side", `"Buy"`), ErrMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseJSON(%s) err = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestParseOwner(t *testing.T) {
	owner := sampleOwner()
	got, err := ParseOwner(owner.String())
	if err != nil {
		t.Fatalf("ParseOwner: %v", err)
	}
	if got != owner {
		t.Errorf("ParseOwner = %x, want %x", got, owner)
	}
}
