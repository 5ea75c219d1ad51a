package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// SignatureSize is the length of an ed25519 signature.
const SignatureSize = ed25519.SignatureSize

var (
	// ErrMalformedSignature is returned for signature bytes that cannot be an ed25519 signature.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalidSignature is returned when a well-formed signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
)

// smallOrderY lists every encoding (sign bit cleared) of a y coordinate whose
// point lies in the order-8 torsion subgroup: y = 0, 1, p-1, the two order-8
// values, and the non-canonical p and p+1.
var smallOrderY = mustDecodeHex(
	"0000000000000000000000000000000000000000000000000000000000000000",
	"0100000000000000000000000000000000000000000000000000000000000000",
	"ecffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f",
	"edffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f",
	"eeffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f",
	"26e8958fc2b227b045c3f489f2ef98f0d5dfac05d3c63339b13802886d53fc05",
	"c7176a703d4dd84fba3c0b760d10670f2a2053fa2c39ccc64ec7fd7792ac037a",
)

func mustDecodeHex(hexes ...string) [][32]byte {
	out := make([][32]byte, len(hexes))
	for i, h := range hexes {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != 32 {
			panic("crypto: bad small-order encoding " + h)
		}
		copy(out[i][:], b)
	}
	return out
}

// isSmallOrder reports whether enc encodes a point P with [8]P = identity.
func isSmallOrder(enc []byte) bool {
	var y [32]byte
	copy(y[:], enc)
	y[31] &= 0x7f
	for _, bad := range smallOrderY {
		if y == bad {
			return true
		}
	}
	return false
}

// Verify checks an ed25519 signature over message for the owner key.
// It returns nil when the signature is valid, ErrMalformedSignature when the
// signature has the wrong length and ErrInvalidSignature otherwise.
// Verification is strict: an owner key or signature R of small order is
// rejected, so no signature verifies for several messages under a weak key.
// The message is opaque; Verify knows nothing about orders.
func Verify(message, signature []byte, owner [32]byte) error {
	if len(signature) != SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d: %w", SignatureSize, len(signature), ErrMalformedSignature)
	}
	if isSmallOrder(owner[:]) {
		return fmt.Errorf("owner key has small order: %w", ErrInvalidSignature)
	}
	if isSmallOrder(signature[:32]) {
		return fmt.Errorf("signature R has small order: %w", ErrInvalidSignature)
	}
	if !ed25519.Verify(ed25519.PublicKey(owner[:]), message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyBool reports whether Verify succeeds.
func VerifyBool(message, signature []byte, owner [32]byte) bool {
	return Verify(message, signature, owner) == nil
}

// DecodeSignatureHex decodes a hex-encoded signature (with or without 0x prefix)
func DecodeSignatureHex(sig string) ([]byte, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex signature: %w", ErrMalformedSignature)
	}
	if len(sigBytes) != SignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d: %w", SignatureSize, len(sigBytes), ErrMalformedSignature)
	}
	return sigBytes, nil
}
