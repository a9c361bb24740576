package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billo/billo/internal/service"
)

// ResplitStatus handles GET /receipts/{id}/settlements.
func (h *Handler) ResplitStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.settlements.ResplitStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResplitStatus(st))
}

// GenerateSettlements handles POST /receipts/{id}/settlements.
func (h *Handler) GenerateSettlements(w http.ResponseWriter, r *http.Request) {
	var req GenerateSettlementsRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.settlements.GenerateForReceipt(r.Context(), chi.URLParam(r, "id"), req.Confirm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, GenerateSettlementsResponse{
		Replaced:    toResplitStatus(res.Previous),
		Settlements: toSettlements(res.Settlements),
		Totals:      toPersonTotals(res.Totals),
	})
}

// CreateSettlement handles POST /settlements.
func (h *Handler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req CreateSettlementRequest
	if !decode(w, r, &req) {
		return
	}

	st, err := h.settlements.Create(r.Context(), service.CreateSettlementInput{
		ReceiptID:  req.ReceiptID,
		GroupID:    req.GroupID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlement(st))
}

// ListSettlements handles GET /settlements?groupId=&status=&direction=.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.settlements.List(r.Context(), service.ListSettlementsInput{
		GroupID:   q.Get("groupId"),
		Status:    q.Get("status"),
		Direction: q.Get("direction"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettlementsResponse{Settlements: toSettlements(rows)})
}

// GetSettlement handles GET /settlements/{id}.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	st, err := h.settlements.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlement(st))
}

// UpdateSettlement handles PATCH /settlements/{id}.
func (h *Handler) UpdateSettlement(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettlementRequest
	if !decode(w, r, &req) {
		return
	}

	st, err := h.settlements.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateSettlementInput{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlement(st))
}

// DeleteSettlement handles DELETE /settlements/{id}.
func (h *Handler) DeleteSettlement(w http.ResponseWriter, r *http.Request) {
	if err := h.settlements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
