package order

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash returns keccak256 of the binary encoding. It identifies an intent in
// receipts, logs and feeds; it is not what the owner signs.
func (o OrderIntent) Hash() common.Hash {
	var buf [EncodedLen]byte
	return crypto.Keccak256Hash(o.AppendEncode(buf[:0]))
}
