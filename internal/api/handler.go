package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ticket-ledger/internal/auth"
	"ticket-ledger/internal/dispatch"
	"ticket-ledger/internal/holding"
	"ticket-ledger/internal/holding/qr"
	"ticket-ledger/internal/identity"
	"ticket-ledger/internal/income"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/purchase"
	"ticket-ledger/internal/sse"
	"ticket-ledger/internal/utils"
)

// Handler exposes the ledger over HTTP: the invoke endpoint, the
// token-service transfer callback, the live purchase stream and the
// encrypted entry pass.
type Handler struct {
	Logger     *logger.Logger
	Auth       *auth.Auth
	Dispatcher *dispatch.Dispatcher
	Purchases  *purchase.Service
	Emitter    *sse.PurchaseEventEmitter
	Holdings   *holding.Service
	Tiers      *ledger.Service
	Identity   *identity.Service
	Income     *income.Service
	QR         *qr.QRGenerator
}

// Routes mounts the handler on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.requestLogger)

	r.Post("/invoke", h.Invoke)
	r.Post("/callbacks/token-transfer", h.TokenTransferCallback)
	r.Get("/event", h.EventInfo)
	r.Get("/events/purchases", h.PurchaseEvents)
	r.Get("/ticket/pass/{tierID}", h.TicketPass)
	r.Get("/income", h.OwnerIncome)
	r.Get("/income/deposits/{addr}", h.Deposit)
	r.Get("/health", h.Health)
}

// requestLogger tags every request with a correlation ID and logs it on the
// way out.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, requestID, time.Since(start).String())
	})
}

// Invoke is the single dispatch entry point. The caller identity comes from
// the bearer token when present; operations that require the owner enforce
// that themselves, so unauthenticated reads still work.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	var cmd dispatch.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	caller, err := h.Auth.CallerAddress(r)
	if err != nil {
		caller = ""
	}

	result, err := h.Dispatcher.Dispatch(r.Context(), caller, cmd)
	if err != nil {
		h.Logger.Warn("DISPATCH", fmt.Sprintf("Operation %s rejected: %v", cmd.Op, err))
		writeJSON(w, statusFor(err), utils.ErrorResponse(fmt.Sprintf("Operation %s failed", cmd.Op), err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Operation %s succeeded", cmd.Op), result))
}

// TokenTransferCallback receives transfer notifications pushed by the token
// service. Only callers presenting the shared callback secret are accepted.
func (h *Handler) TokenTransferCallback(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.FromTokenService(r) {
		h.Logger.LogSecurity("CALLBACK", "transfer callback without valid secret rejected")
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Caller is not the token service", "invalid callback secret"))
		return
	}

	var ev models.TransferEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid transfer payload", err.Error()))
		return
	}

	if err := h.Purchases.HandleTransfer(r.Context(), ev); err != nil {
		h.Logger.LogPurchase("TRANSFER", ev.From, fmt.Sprintf("transfer %s rejected: %v", ev.ID, err))
		writeJSON(w, statusFor(err), utils.ErrorResponse("Transfer rejected", err.Error()))
		return
	}

	h.Logger.LogPurchase("TRANSFER", ev.From, fmt.Sprintf("transfer %s applied", ev.ID))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Transfer applied", nil))
}

// PurchaseEvents streams committed purchases as Server-Sent Events. Only the
// event owner may watch the sales feed.
func (h *Handler) PurchaseEvents(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.IsOwnerRequest(r) {
		http.Error(w, "Unauthorized access", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ctx := r.Context()
	eventChan := h.Emitter.Subscribe(ctx)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	h.Logger.Info("SSE", "Client connected to purchase events")

	for {
		select {
		case receipt, open := <-eventChan:
			if !open {
				return
			}
			jsonData, err := json.Marshal(receipt)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize purchase event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: purchase\ndata: %s\n\n", jsonData)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", "Purchase event client disconnected")
			return
		}
	}
}

// TicketPass renders the caller's holding for a tier as an encrypted QR PNG.
// The buyer identity comes from the bearer token.
func (h *Handler) TicketPass(w http.ResponseWriter, r *http.Request) {
	buyer, err := h.Auth.CallerAddress(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Authentication required", err.Error()))
		return
	}

	tierID, err := strconv.Atoi(chi.URLParam(r, "tierID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid tier id", err.Error()))
		return
	}

	ctx := r.Context()

	holdingRec, err := h.Holdings.MyTicket(ctx, buyer, tierID)
	if err != nil {
		writeJSON(w, statusFor(err), utils.ErrorResponse("No ticket for this tier", err.Error()))
		return
	}

	tier, err := h.Tiers.Tier(ctx, tierID)
	if err != nil {
		writeJSON(w, statusFor(err), utils.ErrorResponse("Tier not found", err.Error()))
		return
	}

	proofHash, err := h.Identity.Proof(ctx, buyer)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load identity proof", err.Error()))
		return
	}

	png, err := h.QR.GenerateEncryptedQR(models.EntryPass{
		Buyer:     buyer,
		TierID:    tierID,
		TierLabel: tier.Label,
		Quantity:  holdingRec.Quantity,
		ProofHash: proofHash,
		IssuedAt:  time.Now().UTC(),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to generate pass", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// EventInfo is a public read of the deployed event record.
func (h *Handler) EventInfo(w http.ResponseWriter, r *http.Request) {
	event, err := h.Tiers.Event(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), utils.ErrorResponse("No event deployed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event info", map[string]interface{}{
		"name":               event.Name,
		"start_time":         event.StartTime,
		"starts_at":          utils.UnixTimeToTime(event.StartTime),
		"total_ticket_slots": event.TotalTicketSlots,
	}))
}

// OwnerIncome reports the cumulative ticket income. Owner-only.
func (h *Handler) OwnerIncome(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.IsOwnerRequest(r) {
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Caller is not the event owner", "owner token required"))
		return
	}

	total, err := h.Income.Total(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), utils.ErrorResponse("Failed to read income", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Owner income", map[string]int64{"total": total}))
}

// Deposit reports the accumulated generic deposits from one sender. Owner-only.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.IsOwnerRequest(r) {
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Caller is not the event owner", "owner token required"))
		return
	}

	addr := chi.URLParam(r, "addr")
	total, err := h.Income.DepositOf(r.Context(), addr)
	if err != nil {
		writeJSON(w, statusFor(err), utils.ErrorResponse("Failed to read deposits", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Deposit total", map[string]int64{"total": total}))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, utils.SuccessResponse("ticket-ledger is up", nil))
}

// statusFor maps the internal error taxonomy onto HTTP status codes. The
// response body still carries the boolean success flag callers key on.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientPayment),
		errors.Is(err, models.ErrSupplyExhausted),
		errors.Is(err, models.ErrAlreadyRedeemed),
		errors.Is(err, models.ErrAlreadyDeployed),
		errors.Is(err, models.ErrDuplicateTransfer):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstreamCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
