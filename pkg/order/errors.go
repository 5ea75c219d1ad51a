package order

import "errors"

// Codec and construction failures. Callers match with errors.Is; the
// returned errors wrap these with the offending field or length.
var (
	// ErrInvalidDiscriminant is returned for a side tag or kind that is not Buy or Sell.
	ErrInvalidDiscriminant = errors.New("invalid discriminant")

	// ErrTruncatedInput is returned when a binary intent is shorter than EncodedLen.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrExcessInput is returned when a binary intent is longer than EncodedLen.
	ErrExcessInput = errors.New("excess input")

	// ErrFieldRange is returned for zero price/quantity and out-of-range decimals.
	ErrFieldRange = errors.New("field out of range")

	// ErrMalformedJSON is returned when a JSON document does not have the expected shape.
	ErrMalformedJSON = errors.New("malformed json")
)
