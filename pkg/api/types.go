package api

import (
	"strings"

	"github.com/uhyunpark/frmdex/pkg/order"
)

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// SubmitOrderResponse acknowledges an accepted order
type SubmitOrderResponse struct {
	Status    string `json:"status"`     // "accepted"
	Seq       uint64 `json:"seq"`        // Position in the sequence
	OrderID   string `json:"order_id"`   // Decimal string, echoed from the intent
	Owner     string `json:"owner"`      // base58
	OrderHash string `json:"order_hash"` // keccak256 of the binary intent (0x...)
}

// OrderInfo is a claimed order as stored in the ledger
type OrderInfo struct {
	Seq       uint64            `json:"seq"`
	OrderHash string            `json:"order_hash"`
	Intent    order.OrderIntent `json:"intent"`
	Signature string            `json:"signature"` // hex
}

// QueueStatus reports orders waiting for the matcher
type QueueStatus struct {
	Pending int    `json:"pending"`
	Buys    int    `json:"buys"`
	Sells   int    `json:"sells"`
	LastSeq uint64 `json:"last_seq"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"` // e.g. "InvalidSignature", "DuplicateOrder"
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["orders", "orders:<owner base58>"]
}

// WSAck answers every subscribe/unsubscribe request
type WSAck struct {
	Type     string   `json:"type"` // "subscribed", "unsubscribed" or "error"
	Channels []string `json:"channels,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// OrderAcceptedUpdate is broadcast when the sequencer accepts an order
type OrderAcceptedUpdate struct {
	Type       string            `json:"type"` // "order_accepted"
	Seq        uint64            `json:"seq"`
	OrderHash  string            `json:"order_hash"`
	Intent     order.OrderIntent `json:"intent"`
	AcceptedAt int64             `json:"accepted_at"` // Unix milliseconds
}

// Channel names
const (
	ChannelOrders      = "orders"
	channelOwnerPrefix = "orders:"
)

// OwnerChannel returns the per-owner feed channel name
func OwnerChannel(owner order.Owner) string {
	return channelOwnerPrefix + owner.String()
}

// validChannel accepts ChannelOrders and owner channels with a decodable owner
func validChannel(channel string) bool {
	if channel == ChannelOrders {
		return true
	}
	rest, ok := strings.CutPrefix(channel, channelOwnerPrefix)
	if !ok {
		return false
	}
	_, err := order.ParseOwner(rest)
	return err == nil
}
