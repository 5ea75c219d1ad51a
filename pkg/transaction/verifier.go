package transaction

import (
	"bytes"
	"fmt"

	"github.com/uhyunpark/frmdex/pkg/crypto"
	"github.com/uhyunpark/frmdex/pkg/order"
)

// Verifier handles submission signature verification. It is stateless.
type Verifier struct{}

// NewVerifier creates a new submission verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify decodes a submission, rebuilds the canonical message and checks the
// owner's signature over it.
func (v *Verifier) Verify(sub *Submission) (SignedOrder, error) {
	so, err := sub.SignedOrder()
	if err != nil {
		return SignedOrder{}, err
	}

	msg := order.CanonicalMessage(so.Intent)

	claimed, ok, err := sub.claimedMessage()
	if err != nil {
		return SignedOrder{}, err
	}
	if ok && !bytes.Equal(claimed, msg) {
		return SignedOrder{}, fmt.Errorf("client signed %q, rebuilt %q: %w", claimed, msg, ErrEncodingMismatch)
	}

	if err := v.VerifySignedOrder(so); err != nil {
		return SignedOrder{}, err
	}
	return so, nil
}

// VerifySignedOrder checks so.Signature against the intent's owner.
func (v *Verifier) VerifySignedOrder(so SignedOrder) error {
	msg := order.CanonicalMessage(so.Intent)
	if err := crypto.Verify(msg, so.Signature, so.Intent.Owner()); err != nil {
		return fmt.Errorf("order %d owner %s: %w", so.Intent.OrderID(), so.Intent.Owner(), err)
	}
	return nil
}

// Sign produces a SignedOrder for intent. The signer must own the intent.
func Sign(signer *crypto.Signer, intent order.OrderIntent) (SignedOrder, error) {
	if signer.Owner() != intent.Owner() {
		return SignedOrder{}, fmt.Errorf("signer %s does not own order %d", signer.OwnerBase58(), intent.OrderID())
	}
	return SignedOrder{
		Intent:    intent,
		Signature: signer.Sign(order.CanonicalMessage(intent)),
	}, nil
}
