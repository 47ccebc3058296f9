package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/services"
)

const maxBodyBytes = 64 << 10

type LandHandler struct {
	svc     *services.LandService
	monitor *services.PaymentMonitor
	schema  *jsonschema.Schema
}

func NewLandHandler(svc *services.LandService, monitor *services.PaymentMonitor) *LandHandler {
	return &LandHandler{
		svc:     svc,
		monitor: monitor,
		schema:  jsonschema.MustCompileString("purchase.schema.json", purchaseSchema),
	}
}

func (h *LandHandler) LandData(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.View(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *LandHandler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer", "")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"purchases": h.svc.History(r.Context(), limit),
	})
}

func (h *LandHandler) PurchasePlot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body too large", "")
		return
	}

	if err := h.validate(body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
		return
	}

	var req services.PurchaseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body", "")
		return
	}

	resp, err := h.svc.Purchase(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *LandHandler) validate(body []byte) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return errors.New("invalid json body")
	}

	if err := h.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			for len(ve.Causes) > 0 {
				ve = ve.Causes[0]
			}
			return fmt.Errorf("%s: %s", ve.InstanceLocation, ve.Message)
		}
		return err
	}

	return nil
}

func (h *LandHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Quote(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (h *LandHandler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		writeJSON(w, http.StatusOK, services.MonitorStatus{PendingTransactions: []domain.ConfirmedPayment{}})
		return
	}

	writeJSON(w, http.StatusOK, h.monitor.Status())
}

func (h *LandHandler) OrphanedPayments(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.svc.OrphanedPayments(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"orphanedPayments": orphans})
}

func (h *LandHandler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	balance, err := h.svc.WalletBalance(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": balance,
	})
}

func (h *LandHandler) Airdrop(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	sig, err := h.svc.RequestTestFunds(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"address":   address,
		"signature": sig,
	})
}

type errorBody struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	ExpectedPlotID string `json:"expectedPlotId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg, expected string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Code: code, Message: msg, ExpectedPlotID: expected},
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)

	var expected string
	var ce *domain.CommitError
	if errors.As(err, &ce) {
		expected = ce.ExpectedPlot
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
		msg = "internal server error"
	}

	writeError(w, status, code, msg, expected)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrOutOfOrder):
		return http.StatusConflict, "OUT_OF_ORDER"
	case errors.Is(err, domain.ErrUnknownPlot):
		return http.StatusNotFound, "UNKNOWN_PLOT"
	case errors.Is(err, domain.ErrPaymentUnconfirmed):
		return http.StatusPaymentRequired, "PAYMENT_UNCONFIRMED"
	case errors.Is(err, domain.ErrDuplicatePayment):
		return http.StatusConflict, "DUPLICATE_PAYMENT"
	case errors.Is(err, domain.ErrPriceMismatch):
		return http.StatusBadRequest, "PRICE_MISMATCH"
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrAirdropDisabled):
		return http.StatusForbidden, "AIRDROP_DISABLED"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
