package transaction

import (
	"errors"

	"github.com/uhyunpark/frmdex/pkg/crypto"
	"github.com/uhyunpark/frmdex/pkg/order"
)

// ErrEncodingMismatch means the canonical message rebuilt from the intent
// differs from the bytes the client says it signed. It points at a protocol
// bug in one of the two implementations, not at bad user input.
var ErrEncodingMismatch = errors.New("encoding mismatch")

// Error kinds reported to clients and logs.
const (
	KindInvalidDiscriminant = "InvalidDiscriminant"
	KindTruncatedInput      = "TruncatedInput"
	KindExcessInput         = "ExcessInput"
	KindFieldRange          = "FieldRangeError"
	KindMalformedJSON       = "MalformedJSON"
	KindMalformedSignature  = "MalformedSignature"
	KindInvalidSignature    = "InvalidSignature"
	KindEncodingMismatch    = "EncodingMismatch"
	KindInternal            = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrEncodingMismatch, KindEncodingMismatch},
	{crypto.ErrMalformedSignature, KindMalformedSignature},
	{crypto.ErrInvalidSignature, KindInvalidSignature},
	{order.ErrInvalidDiscriminant, KindInvalidDiscriminant},
	{order.ErrTruncatedInput, KindTruncatedInput},
	{order.ErrExcessInput, KindExcessInput},
	{order.ErrFieldRange, KindFieldRange},
	{order.ErrMalformedJSON, KindMalformedJSON},
}

// ErrorKind names the protocol error class of err, or KindInternal.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
