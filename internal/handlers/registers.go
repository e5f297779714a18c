package handlers

import (
	"encoding/json"
	"net/http"

	"cashgame/internal/auth"
	"cashgame/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const recentClosedLimit = 5

type createRegisterRequest struct {
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

func (h *Handler) CreateRegister(w http.ResponseWriter, r *http.Request) {
	var req createRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	reg, err := h.registers.Create(r.Context(), middleware.ActorFromContext(r.Context()), req.Name, req.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, registerJSON(reg))
}

func (h *Handler) ListOpenRegisters(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registers.ListOpen(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, registersJSON(regs))
}

func (h *Handler) ListClosedRegisters(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := h.registers.ListClosed(r.Context(), query.Get("search"), parseInt(query.Get("page"), 1), parseInt(query.Get("limit"), 20))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"registers": registersJSON(page.Registers),
		"total":     page.Total,
		"page":      page.Page,
		"limit":     page.Limit,
	})
}

// Dashboard lists open registers with the most recently closed ones.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	open, err := h.registers.ListOpen(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	recent, err := h.registers.ListClosed(r.Context(), "", 1, recentClosedLimit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"open":          registersJSON(open),
		"recent_closed": registersJSON(recent.Registers),
		"closed_total":  recent.Total,
	})
}

func (h *Handler) GetRegister(w http.ResponseWriter, r *http.Request) {
	detail, err := h.registers.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	players := make([]map[string]any, 0, len(detail.Players))
	for _, pp := range detail.Players {
		players = append(players, positionJSON(pp))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"register":     registerJSON(detail.Register),
		"players":      players,
		"transactions": transactionsJSON(detail.Transactions),
		"summary":      summaryJSON(detail.Summary),
	})
}

type addPlayerRequest struct {
	Name string `json:"name"`
}

func (h *Handler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	player, err := h.registers.AddPlayer(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, playerJSON(player))
}

type secretRequest struct {
	Secret string `json:"secret"`
}

func (h *Handler) CloseRegister(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	actor := middleware.ActorFromContext(r.Context())
	actor.Secret = req.Secret
	reg, err := h.registers.Close(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, registerJSON(reg))
}

// AuthorizeEdit exchanges the edit secret for a grant token scoped to one
// closed register. Clients send it back in the X-Edit-Grant header.
func (h *Handler) AuthorizeEdit(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	registerID := chi.URLParam(r, "id")
	actor, err := h.registers.AuthorizeEdit(r.Context(), middleware.ActorFromContext(r.Context()), registerID, req.Secret)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	grant, expiresAt, err := auth.GenerateEditGrant(h.cfg.JWTSecret, actor.ID, registerID, h.cfg.EditGrantTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue edit grant")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"grant":       grant,
		"register_id": registerID,
		"expires_at":  expiresAt,
		"header":      middleware.EditGrantHeader,
	})
}
