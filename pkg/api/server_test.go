package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uhyunpark/frmdex/params"
	"github.com/uhyunpark/frmdex/pkg/crypto"
	"github.com/uhyunpark/frmdex/pkg/order"
	"github.com/uhyunpark/frmdex/pkg/sequencer"
	"github.com/uhyunpark/frmdex/pkg/storage"
	"github.com/uhyunpark/frmdex/pkg/transaction"
	"github.com/uhyunpark/frmdex/pkg/util"
)

const testExpiry = 1770595200000

func newTestServer(t *testing.T) (*Server, *util.ManualClock) {
	t.Helper()
	clock := util.NewManualClock(time.UnixMilli(testExpiry - 60_000))
	seq, err := sequencer.New(storage.NewMemoryLedger(), clock, nil)
	if err != nil {
		t.Fatalf("sequencer.New: %v", err)
	}
	return NewServer(seq, params.Default().API, nil), clock
}

func signedBody(t *testing.T, signer *crypto.Signer, orderID uint64) []byte {
	t.Helper()
	intent, err := order.NewOrderIntent(order.IntentFields{
		OrderID:  orderID,
		Owner:    signer.Owner(),
		Side:     order.Buy,
		Price:    100,
		Quantity: 500,
		Expiry:   testExpiry,
	})
	if err != nil {
		t.Fatalf("NewOrderIntent: %v", err)
	}
	so, err := transaction.Sign(signer, intent)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sub, err := transaction.NewSubmission(so, false)
	if err != nil {
		t.Fatalf("NewSubmission: %v", err)
	}
	body, err := sub.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return body
}

func post(t *testing.T, h http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestSubmitOrderAccepted(t *testing.T) {
	s, _ := newTestServer(t)
	signer, _ := crypto.GenerateKey()

	rec := post(t, s.Handler(), "/place_order", signedBody(t, signer, 7))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var resp SubmitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "accepted" || resp.Seq != 1 || resp.OrderID != "7" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Owner != signer.OwnerBase58() {
		t.Errorf("owner = %s, want %s", resp.Owner, signer.OwnerBase58())
	}
	if !strings.HasPrefix(resp.OrderHash, "0x") || len(resp.OrderHash) != 66 {
		t.Errorf("order_hash = %q", resp.OrderHash)
	}

	rec2, ok, err := s.seq.Ledger().Get(signer.Owner(), 7)
	if err != nil || !ok {
		t.Fatalf("ledger Get = %v, %v", ok, err)
	}
	if want := rec2.Order.Intent.Hash().Hex(); resp.OrderHash != want {
		t.Errorf("order_hash = %s, want stored %s", resp.OrderHash, want)
	}
}

func TestSubmitOrderRejections(t *testing.T) {
	signer, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()

	good := signedBody(t, signer, 1)

	// Signature from a different key over the same intent
	var forged transaction.Submission
	json.Unmarshal(good, &forged)
	forgedBody := signedBody(t, other, 1)
	var otherSub transaction.Submission
	json.Unmarshal(forgedBody, &otherSub)
	forged.Signature = otherSub.Signature
	forgedJSON, _ := json.Marshal(forged)

	// Intent with the side discriminant out of range
	badSide := bytes.Replace(good, []byte(`{"kind":"Buy"}`), []byte(`{"kind":"Hold"}`), 1)

	tests := []struct {
		name   string
		body   []byte
		status int
		kind   string
	}{
		{"not json", []byte("nope"), http.StatusBadRequest, transaction.KindMalformedJSON},
		{"bad side", badSide, http.StatusBadRequest, transaction.KindInvalidDiscriminant},
		{"short signature", bytes.Replace(good, []byte(`"signature":"`), []byte(`"signature":"ab`), 1), http.StatusBadRequest, transaction.KindMalformedSignature},
		{"wrong signer", forgedJSON, http.StatusUnauthorized, transaction.KindInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rec := post(t, s.Handler(), "/api/v1/orders", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Kind != tt.kind || resp.Error == "" {
				t.Errorf("error = %+v, want kind %s", resp, tt.kind)
			}
		})
	}
}

func TestSubmitOrderDuplicateAndExpired(t *testing.T) {
	s, clock := newTestServer(t)
	signer, _ := crypto.GenerateKey()
	body := signedBody(t, signer, 3)

	if rec := post(t, s.Handler(), "/place_order", body); rec.Code != http.StatusOK {
		t.Fatalf("first submit status = %d", rec.Code)
	}
	rec := post(t, s.Handler(), "/place_order", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay status = %d, want 409", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Kind != sequencer.KindDuplicateOrder {
		t.Errorf("replay kind = %s", resp.Kind)
	}

	clock.Set(time.UnixMilli(testExpiry))
	rec = post(t, s.Handler(), "/place_order", signedBody(t, signer, 4))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expired status = %d, want 422", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Kind != sequencer.KindExpired {
		t.Errorf("expired kind = %s", resp.Kind)
	}
}

func TestSubmitOrderBodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t)
	body := bytes.Repeat([]byte(" "), int(s.cfg.MaxBodyBytes)+1)

	rec := post(t, s.Handler(), "/place_order", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestGetOrderAndQueue(t *testing.T) {
	s, _ := newTestServer(t)
	signer, _ := crypto.GenerateKey()
	h := s.Handler()

	for _, id := range []uint64{2, 1} {
		if rec := post(t, h, "/place_order", signedBody(t, signer, id)); rec.Code != http.StatusOK {
			t.Fatalf("submit %d status = %d", id, rec.Code)
		}
	}

	rec := get(t, h, "/api/v1/orders/"+signer.OwnerBase58()+"/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("get order status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var info OrderInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if info.Seq != 1 || info.Intent.OrderID() != 2 || len(info.Signature) != 128 {
		t.Errorf("order info = %+v", info)
	}

	if rec := get(t, h, "/api/v1/orders/"+signer.OwnerBase58()+"/9"); rec.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/api/v1/orders/not-base58!/1"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad owner status = %d, want 400", rec.Code)
	}

	rec = get(t, h, "/api/v1/accounts/"+signer.OwnerBase58()+"/orders")
	var list []OrderInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0].Intent.OrderID() != 1 || list[1].Intent.OrderID() != 2 {
		t.Errorf("list = %+v", list)
	}

	rec = get(t, h, "/api/v1/queue")
	var qs QueueStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &qs); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if qs.Pending != 2 || qs.Buys != 2 || qs.Sells != 0 || qs.LastSeq != 2 {
		t.Errorf("queue = %+v", qs)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestWebSocketOrderFeed(t *testing.T) {
	s, _ := newTestServer(t)
	signer, _ := crypto.GenerateKey()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Unknown channels are refused without touching existing subscriptions
	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{"trades"}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var ack WSAck
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != "error" || ack.Error != "unknown channel" {
		t.Errorf("ack = %+v, want unknown channel error", ack)
	}

	channel := OwnerChannel(signer.Owner())
	ack = WSAck{}
	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{channel}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != "subscribed" || len(ack.Channels) != 1 || ack.Channels[0] != channel {
		t.Fatalf("ack = %+v", ack)
	}
	if n := s.hub.SubscriberCount(channel); n != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n)
	}

	if rec := post(t, s.Handler(), "/place_order", signedBody(t, signer, 11)); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rec.Code)
	}

	var update OrderAcceptedUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.Type != "order_accepted" || update.Seq != 1 || update.Intent.OrderID() != 11 {
		t.Errorf("update = %+v", update)
	}
	if update.Intent.Owner() != signer.Owner() {
		t.Errorf("update owner = %s", update.Intent.Owner())
	}
}
