package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/frmdex/params"
	"github.com/uhyunpark/frmdex/pkg/order"
	"github.com/uhyunpark/frmdex/pkg/sequencer"
	"github.com/uhyunpark/frmdex/pkg/storage"
	"github.com/uhyunpark/frmdex/pkg/transaction"
)

// Server handles REST API and WebSocket connections
type Server struct {
	seq    *sequencer.Sequencer
	cfg    params.API
	router *mux.Router
	hub    *Hub // WebSocket hub
	logger *zap.SugaredLogger
}

// NewServer creates a new API server and hooks the WebSocket feed into the sequencer
func NewServer(seq *sequencer.Sequencer, cfg params.API, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		seq:    seq,
		cfg:    cfg,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		logger: logger,
	}
	seq.OnAccept = s.BroadcastOrderAccepted

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Route used by the browser client
	s.router.HandleFunc("/place_order", s.handleSubmitOrder).Methods("POST")

	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/{owner}/{order_id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/accounts/{owner}/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/queue", s.handleGetQueue).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_server_starting", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read body", "")
		return
	}

	sub, err := transaction.ParseSubmission(body)
	if err != nil {
		respondKindError(w, err)
		return
	}

	accepted, err := s.seq.Submit(r.Context(), sub)
	if err != nil {
		respondKindError(w, err)
		return
	}

	intent := accepted.Order.Intent
	respondJSON(w, SubmitOrderResponse{
		Status:    "accepted",
		Seq:       accepted.Seq,
		OrderID:   strconv.FormatUint(intent.OrderID(), 10),
		Owner:     intent.Owner().String(),
		OrderHash: accepted.OrderHash.Hex(),
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	owner, err := order.ParseOwner(vars["owner"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid owner", sequencer.Kind(err))
		return
	}
	orderID, err := order.ParseUint64(vars["order_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order_id", sequencer.Kind(err))
		return
	}

	rec, ok, err := s.seq.Ledger().Get(owner, orderID)
	if err != nil {
		s.logger.Errorw("ledger_get_failed", "owner", owner.String(), "order_id", orderID, "err", err)
		respondError(w, http.StatusInternalServerError, "ledger unavailable", transaction.KindInternal)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "order not found", "")
		return
	}

	respondJSON(w, toOrderInfo(rec))
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	owner, err := order.ParseOwner(mux.Vars(r)["owner"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid owner", sequencer.Kind(err))
		return
	}

	recs, err := s.seq.Ledger().ListByOwner(owner)
	if err != nil {
		s.logger.Errorw("ledger_list_failed", "owner", owner.String(), "err", err)
		respondError(w, http.StatusInternalServerError, "ledger unavailable", transaction.KindInternal)
		return
	}

	response := make([]OrderInfo, len(recs))
	for i, rec := range recs {
		response[i] = toOrderInfo(rec)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	buys, sells := s.seq.Queue().CountBySide()
	lastSeq, err := s.seq.Ledger().LastSeq()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ledger unavailable", transaction.KindInternal)
		return
	}
	respondJSON(w, QueueStatus{
		Pending: buys + sells,
		Buys:    buys,
		Sells:   sells,
		LastSeq: lastSeq,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from the sequencer)
// ==============================

// BroadcastOrderAccepted pushes an accepted order to the global and owner feeds
func (s *Server) BroadcastOrderAccepted(sq sequencer.Sequenced) {
	update := OrderAcceptedUpdate{
		Type:       "order_accepted",
		Seq:        sq.Seq,
		OrderHash:  sq.OrderHash.Hex(),
		Intent:     sq.Order.Intent,
		AcceptedAt: sq.AcceptedAt.UnixMilli(),
	}
	s.hub.BroadcastToChannel(ChannelOrders, update)
	s.hub.BroadcastToChannel(OwnerChannel(sq.Order.Intent.Owner()), update)
}

// ==============================
// Helper Functions
// ==============================

func toOrderInfo(rec storage.Record) OrderInfo {
	return OrderInfo{
		Seq:       rec.Seq,
		OrderHash: rec.Order.Intent.Hash().Hex(),
		Intent:    rec.Order.Intent,
		Signature: hex.EncodeToString(rec.Order.Signature),
	}
}

// statusFor maps an error kind to an HTTP status
func statusFor(kind string) int {
	switch kind {
	case transaction.KindInvalidSignature:
		return http.StatusUnauthorized
	case sequencer.KindDuplicateOrder:
		return http.StatusConflict
	case sequencer.KindExpired:
		return http.StatusUnprocessableEntity
	case transaction.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func respondKindError(w http.ResponseWriter, err error) {
	kind := sequencer.Kind(err)
	msg := err.Error()
	if kind == transaction.KindInternal {
		msg = "internal error"
	}
	respondError(w, statusFor(kind), msg, kind)
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: error,
		Kind:  kind,
	})
}
