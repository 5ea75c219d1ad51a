package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/uhyunpark/frmdex/pkg/crypto"
	"github.com/uhyunpark/frmdex/pkg/order"
	"github.com/uhyunpark/frmdex/pkg/transaction"
)

// recordLen is seq(8) | intent(order.EncodedLen) | signature(64).
const recordLen = 8 + order.EncodedLen + crypto.SignatureSize

func encodeRecord(r Record) []byte {
	buf := make([]byte, 0, recordLen)
	buf = binary.BigEndian.AppendUint64(buf, r.Seq)
	buf = r.Order.Intent.AppendEncode(buf)
	return append(buf, r.Order.Signature...)
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) != recordLen {
		return Record{}, fmt.Errorf("record: got %d bytes, want %d", len(b), recordLen)
	}
	intent, err := order.Decode(b[8 : 8+order.EncodedLen])
	if err != nil {
		return Record{}, fmt.Errorf("record intent: %w", err)
	}
	return Record{
		Seq: binary.BigEndian.Uint64(b[:8]),
		Order: transaction.SignedOrder{
			Intent:    intent,
			Signature: append([]byte(nil), b[8+order.EncodedLen:]...),
		},
	}, nil
}

func seqValue(seq uint64) []byte {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], seq)
	return v[:]
}
