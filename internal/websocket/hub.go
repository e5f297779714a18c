package websocket

import (
	"encoding/json"
	"sync"

	"cashgame/internal/ledger"
	"cashgame/internal/money"
)

type MovementUpdate struct {
	Method   string `json:"method"`
	Received string `json:"received"`
	Paid     string `json:"paid"`
	Balance  string `json:"balance"`
}

// SummaryUpdate is pushed to every subscriber of a register after a mutation.
type SummaryUpdate struct {
	RegisterID     string           `json:"register_id"`
	Event          string           `json:"event"`
	Status         string           `json:"status"`
	ChipsInPlay    string           `json:"chips_in_play"`
	PendingDebits  string           `json:"pending_debits"`
	PendingCredits string           `json:"pending_credits"`
	FinalBalance   string           `json:"final_balance"`
	Movements      []MovementUpdate `json:"movements"`
}

func NewSummaryUpdate(registerID, event, status string, summary ledger.Summary) SummaryUpdate {
	movements := make([]MovementUpdate, 0, len(summary.Movements))
	for _, m := range summary.Movements {
		movements = append(movements, MovementUpdate{
			Method:   string(m.Method),
			Received: money.FormatAmount(m.Received),
			Paid:     money.FormatAmount(m.Paid),
			Balance:  money.FormatAmount(m.Balance),
		})
	}
	return SummaryUpdate{
		RegisterID:     registerID,
		Event:          event,
		Status:         status,
		ChipsInPlay:    money.FormatAmount(summary.ChipsInPlay),
		PendingDebits:  money.FormatAmount(summary.PendingDebits),
		PendingCredits: money.FormatAmount(summary.PendingCredits),
		FinalBalance:   money.FormatAmount(summary.FinalBalance),
		Movements:      movements,
	}
}

// Hub fans summary updates out to the clients watching each register.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(registerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[registerID] == nil {
		h.clients[registerID] = make(map[*Client]struct{})
	}
	h.clients[registerID][client] = struct{}{}
}

// Unregister drops the client and closes its send channel so the write pump
// exits. Repeat calls are no-ops.
func (h *Hub) Unregister(registerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[registerID][client]; !ok {
		return
	}
	delete(h.clients[registerID], client)
	close(client.send)
	if len(h.clients[registerID]) == 0 {
		delete(h.clients, registerID)
	}
}

func (h *Hub) Subscribers(registerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[registerID])
}

// BroadcastSummary never blocks: a client whose buffer is full misses the
// update and picks up the next one.
func (h *Hub) BroadcastSummary(registerID string, update SummaryUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[registerID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
