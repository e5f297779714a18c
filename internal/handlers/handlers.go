package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"cashgame/internal/ledger"
	"cashgame/internal/models"
	"cashgame/internal/money"
	"cashgame/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error kinds onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAuth):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrState):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func registerJSON(reg models.Register) map[string]any {
	return map[string]any{
		"id":                  reg.ID,
		"name":                reg.Name,
		"notes":               reg.Notes,
		"status":              reg.Status(),
		"created_by":          reg.CreatedBy,
		"created_at":          reg.CreatedAt,
		"last_transaction_at": reg.LastTransactionAt,
		"closed_at":           reg.ClosedAt,
	}
}

func registersJSON(regs []models.Register) []map[string]any {
	out := make([]map[string]any, 0, len(regs))
	for _, reg := range regs {
		out = append(out, registerJSON(reg))
	}
	return out
}

func playerJSON(player models.Player) map[string]any {
	return map[string]any{
		"id":          player.ID,
		"register_id": player.RegisterID,
		"name":        player.Name,
		"created_at":  player.CreatedAt,
	}
}

func positionJSON(pp models.PlayerPosition) map[string]any {
	body := playerJSON(pp.Player)
	payments := make(map[string]string, len(ledger.Methods))
	for _, method := range ledger.Methods {
		payments[string(method)] = money.FormatAmount(pp.Position.Payments[method])
	}
	body["purchases"] = money.FormatAmount(pp.Position.Purchases)
	body["returns"] = money.FormatAmount(pp.Position.Returns)
	body["payments"] = payments
	body["total_payments"] = money.FormatAmount(pp.Position.TotalPayments())
	body["balance"] = money.FormatAmount(pp.Position.Balance())
	return body
}

func transactionJSON(t models.Transaction) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"player_id":   t.PlayerID,
		"register_id": t.RegisterID,
		"type":        t.Type,
		"chips":       money.FormatAmount(t.Chips),
		"payment":     money.FormatAmount(t.Payment),
		"method":      t.Method,
		"created_at":  t.CreatedAt.Format(time.RFC3339),
	}
}

func transactionsJSON(rows []models.Transaction) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, t := range rows {
		out = append(out, transactionJSON(t))
	}
	return out
}

func summaryJSON(summary ledger.Summary) map[string]any {
	movements := make([]map[string]string, 0, len(summary.Movements))
	for _, m := range summary.Movements {
		movements = append(movements, map[string]string{
			"method":   string(m.Method),
			"received": money.FormatAmount(m.Received),
			"paid":     money.FormatAmount(m.Paid),
			"balance":  money.FormatAmount(m.Balance),
		})
	}
	return map[string]any{
		"chips_in_play":   money.FormatAmount(summary.ChipsInPlay),
		"pending_debits":  money.FormatAmount(summary.PendingDebits),
		"pending_credits": money.FormatAmount(summary.PendingCredits),
		"final_balance":   money.FormatAmount(summary.FinalBalance),
		"movements":       movements,
	}
}
