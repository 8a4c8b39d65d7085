package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"abode/internal/httpkit"
)

// GetCredits returns the caller organization's credit balance. Callers
// can only read their own organization.
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgId")
	if orgID != id.OrgID {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "organization not found", nil)
		return
	}

	balance, err := h.ledger.Balance(ctx, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"org_id":  orgID,
		"balance": balance,
	})
}

type topupRequest struct {
	Amount int `json:"amount"`
}

// PostCreditsTopup adds credits to the caller organization's balance.
func (h *Handler) PostCreditsTopup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgId")
	if orgID != id.OrgID {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "organization not found", nil)
		return
	}

	var req topupRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	if req.Amount <= 0 {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "amount must be positive", map[string]any{"field": "amount"})
		return
	}

	if err := h.ledger.Deposit(ctx, orgID, req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}

	balance, err := h.ledger.Balance(ctx, orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"org_id":  orgID,
		"balance": balance,
	})
}
