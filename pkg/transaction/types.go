package transaction

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uhyunpark/frmdex/pkg/crypto"
	"github.com/uhyunpark/frmdex/pkg/order"
)

// SignedOrder pairs an intent with the owner's signature over its
// canonical message. It only exists at the transport boundary.
type SignedOrder struct {
	Intent    order.OrderIntent
	Signature []byte
}

// Submission is the document a client posts to the sequencer:
//
//	{
//	  "intent": {"order_id":"1","owner":"<base58>","side":{"kind":"Buy"},"price":"100","quantity":"500","expiry":"1770595200000"},
//	  "signature": "<hex, 64 bytes>",
//	  "message": "<optional hex of the signed bytes>"
//	}
//
// Message is a debugging aid: when present it must equal the canonical
// message the sequencer rebuilds, otherwise the submission fails with
// ErrEncodingMismatch instead of a plain signature failure.
type Submission struct {
	Intent    json.RawMessage `json:"intent"`
	Signature string          `json:"signature"`
	Message   string          `json:"message,omitempty"`
}

// NewSubmission builds the client-side document for a signed order.
func NewSubmission(so SignedOrder, includeMessage bool) (*Submission, error) {
	intentJSON, err := json.Marshal(so.Intent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent: %w", err)
	}
	sub := &Submission{
		Intent:    intentJSON,
		Signature: hex.EncodeToString(so.Signature),
	}
	if includeMessage {
		sub.Message = hex.EncodeToString(order.CanonicalMessage(so.Intent))
	}
	return sub, nil
}

// Serialize converts the submission to JSON bytes
func (s *Submission) Serialize() ([]byte, error) {
	return json.Marshal(s)
}

// ParseSubmission parses and structurally validates a submission document.
func ParseSubmission(data []byte) (*Submission, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var sub Submission
	if err := dec.Decode(&sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission: %v: %w", err, order.ErrMalformedJSON)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after submission: %w", order.ErrMalformedJSON)
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}
	return &sub, nil
}

// Validate performs basic validation on the document structure
func (s *Submission) Validate() error {
	trimmed := bytes.TrimSpace(s.Intent)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("missing intent: %w", order.ErrMalformedJSON)
	}
	if strings.TrimSpace(s.Signature) == "" {
		return fmt.Errorf("missing signature: %w", crypto.ErrMalformedSignature)
	}
	return nil
}

// SignedOrder decodes the intent and signature. It does not verify.
func (s *Submission) SignedOrder() (SignedOrder, error) {
	intent, err := order.ParseJSON(s.Intent)
	if err != nil {
		return SignedOrder{}, err
	}
	sig, err := crypto.DecodeSignatureHex(s.Signature)
	if err != nil {
		return SignedOrder{}, err
	}
	return SignedOrder{Intent: intent, Signature: sig}, nil
}

// claimedMessage decodes the optional message field.
func (s *Submission) claimedMessage() ([]byte, bool, error) {
	if s.Message == "" {
		return nil, false, nil
	}
	msg, err := hex.DecodeString(strings.TrimPrefix(s.Message, "0x"))
	if err != nil {
		return nil, false, fmt.Errorf("message is not hex: %w", order.ErrMalformedJSON)
	}
	return msg, true, nil
}
