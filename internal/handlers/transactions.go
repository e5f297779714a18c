package handlers

import (
	"encoding/json"
	"net/http"

	"cashgame/internal/ledger"
	"cashgame/internal/middleware"
	"cashgame/internal/services"

	"github.com/go-chi/chi/v5"
)

type addTransactionRequest struct {
	Type    string      `json:"type"`
	Chips   json.Number `json:"chips"`
	Payment json.Number `json:"payment"`
	Method  string      `json:"method"`
}

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	chips, err := parseAmount(req.Chips, true)
	if err != nil {
		respondError(w, http.StatusBadRequest, "chips: "+err.Error())
		return
	}
	payment, err := parseAmount(req.Payment, false)
	if err != nil {
		respondError(w, http.StatusBadRequest, "payment: "+err.Error())
		return
	}
	t, err := h.transactions.Append(r.Context(), middleware.ActorFromContext(r.Context()), services.AppendRequest{
		PlayerID: chi.URLParam(r, "id"),
		Kind:     ledger.Kind(req.Type),
		Chips:    chips,
		Payment:  payment,
		Method:   ledger.Method(req.Method),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, transactionJSON(t))
}

func (h *Handler) ListPlayerTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.transactions.ListByPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionsJSON(rows))
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	pp, err := h.transactions.PlayerPosition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, positionJSON(pp))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := h.transactions.Remove(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
