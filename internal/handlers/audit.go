package handlers

import (
	"net/http"
	"strings"

	"cashgame/internal/auth"
	"cashgame/internal/services"
	"cashgame/internal/websocket"

	"github.com/go-chi/chi/v5"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := min(parseInt(query.Get("limit"), defaultAuditLimit), maxAuditLimit)
	page := min(parseInt(query.Get("page"), 1), services.MaxPage)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) RegisterAudit(w http.ResponseWriter, r *http.Request) {
	rows, err := h.audit.ListForRegister(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Reconcile reports rows that break the partition invariants: a register
// present in both partitions, or a closed transaction tagged with a register
// other than its player's. An empty list means the store is consistent.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	type reconRow struct {
		Issue    string `db:"issue"`
		EntityID string `db:"entity_id"`
	}
	var rows []reconRow
	query := `
		SELECT 'register_in_both_partitions' AS issue, o.id AS entity_id
		FROM open_registers o
		JOIN closed_registers c ON c.id = o.id
		UNION ALL
		SELECT 'closed_transaction_register_mismatch' AS issue, ct.id AS entity_id
		FROM closed_transactions ct
		JOIN closed_players cp ON cp.id = ct.player_id
		WHERE cp.closed_register_id <> ct.closed_register_id
		ORDER BY issue, entity_id
	`
	if err := h.reconcileDB.SelectContext(r.Context(), &rows, query); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reconcile registers")
		return
	}
	issues := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, map[string]string{
			"issue":     row.Issue,
			"entity_id": row.EntityID,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"consistent": len(issues) == 0,
		"issues":     issues,
	})
}

// WSRegister streams summary updates for one register. Browsers cannot set
// headers on the upgrade request, so the token may come as a query parameter.
func (h *Handler) WSRegister(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	if _, err := auth.ParseToken(h.cfg.JWTSecret, token); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	registerID := chi.URLParam(r, "id")
	if _, err := h.registers.Detail(r.Context(), registerID); err != nil {
		respondServiceError(w, err)
		return
	}
	websocket.ServeWS(w, r, h.hub, registerID)
}
