package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/mr-tron/base58"
)

// Signer manages an ed25519 key pair for signing order messages.
// The public key is the 32-byte owner identity (Solana-compatible).
type Signer struct {
	privateKey ed25519.PrivateKey
	owner      [ed25519.PublicKeySize]byte
}

// GenerateKey creates a new random ed25519 key pair
func GenerateKey() (*Signer, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newSigner(privateKey)
}

// FromSeed creates a Signer from a 32-byte seed
func FromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return newSigner(ed25519.NewKeyFromSeed(seed))
}

// FromSeedHex creates a Signer from a hex-encoded seed
// Format: "0x1234..." or "1234..." (64 hex chars)
func FromSeedHex(hexSeed string) (*Signer, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(hexSeed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return FromSeed(seed)
}

func newSigner(privateKey ed25519.PrivateKey) (*Signer, error) {
	publicKey, ok := privateKey.Public().(ed25519.PublicKey)
	if !ok || len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("failed to derive ed25519 public key")
	}
	s := &Signer{privateKey: privateKey}
	copy(s.owner[:], publicKey)
	return s, nil
}

// Owner returns the 32-byte public key
func (s *Signer) Owner() [32]byte {
	return s.owner
}

// OwnerBase58 returns the public key in wallet (base58) form
func (s *Signer) OwnerBase58() string {
	return base58.Encode(s.owner[:])
}

// SeedHex returns the seed as hex string (WITHOUT 0x prefix)
// WARNING: Keep this secret! Never expose to users or logs
func (s *Signer) SeedHex() string {
	return hex.EncodeToString(s.privateKey.Seed())
}

// Sign signs the raw message bytes. ed25519 hashes internally, so the
// message is passed as-is (the same bytes a wallet's signMessage receives).
// Returns a 64-byte signature.
func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.privateKey, message)
}
