package api

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"

	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/service"
)

// parseDate accepts "2006-01-02" or RFC 3339.
func parseDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}

// CreateReceipt handles POST /receipts.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if !decode(w, r, &req) {
		return
	}

	purchaseDate, ok := parseDate(req.PurchaseDate)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "purchaseDate must be YYYY-MM-DD or RFC 3339",
			Code:  connect.CodeInvalidArgument.String(),
		})
		return
	}

	total := req.Total
	if total == nil {
		total = req.TotalAmount
	}

	items := make([]service.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.ItemInput{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		}
	}

	receipt, err := h.receipts.Create(r.Context(), service.CreateReceiptInput{
		GroupID:      req.GroupID,
		MerchantName: req.MerchantName,
		PurchaseDate: purchaseDate,
		Currency:     req.Currency,
		Tax:          string(req.Tax),
		Total:        total,
		Source:       req.Source,
		Items:        items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceipt(receipt))
}

// GetReceipt handles GET /receipts/{id}.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.receipts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(receipt))
}

// CreateGroup handles POST /groups.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decode(w, r, &req) {
		return
	}
	group, err := h.groups.Create(r.Context(), req.Name, req.MemberIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroup(group))
}

// GetGroup handles GET /groups/{id}.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroup(group))
}

// AddGroupMember handles POST /groups/{id}/members.
func (h *Handler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if !decode(w, r, &req) {
		return
	}
	group, err := h.groups.AddMember(r.Context(), chi.URLParam(r, "id"), req.UserID, models.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroup(group))
}

// SyncMe handles PUT /users/me.
func (h *Handler) SyncMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.SyncMe(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(user))
}

// UpdatePreferences handles PATCH /users/me/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.UpdatePreferences(r.Context(), service.PreferencesInput{
		SettlementCreated: req.SettlementCreated,
		PaymentConfirmed:  req.PaymentConfirmed,
		PaymentUnmarked:   req.PaymentUnmarked,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(user))
}
