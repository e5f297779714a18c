package handlers

import (
	"net/http"

	"cashgame/internal/config"
	"cashgame/internal/db"
	"cashgame/internal/middleware"
	"cashgame/internal/store"
	"cashgame/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	reconcileDB  store.Selecter
	txRunner     db.TxRunner
	cfg          config.Config
	operators    OperatorStore
	audit        AuditStore
	registers    RegisterService
	transactions TransactionService
	hub          *websocket.Hub
}

func New(reconcileDB store.Selecter, txRunner db.TxRunner, cfg config.Config, operators OperatorStore, audit AuditStore, registers RegisterService, transactions TransactionService, hub *websocket.Hub) *Handler {
	return &Handler{
		reconcileDB:  reconcileDB,
		txRunner:     txRunner,
		cfg:          cfg,
		operators:    operators,
		audit:        audit,
		registers:    registers,
		transactions: transactions,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.EditGrantHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Use(middleware.EditGrants(h.cfg.JWTSecret))
		r.Get("/dashboard", h.Dashboard)
		r.Get("/registers", h.ListOpenRegisters)
		r.Post("/registers", h.CreateRegister)
		r.Get("/registers/closed", h.ListClosedRegisters)
		r.Get("/registers/{id}", h.GetRegister)
		r.Get("/registers/{id}/audit", h.RegisterAudit)
		r.Post("/registers/{id}/players", h.AddPlayer)
		r.Post("/registers/{id}/close", h.CloseRegister)
		r.Post("/registers/{id}/edit-grant", h.AuthorizeEdit)
		r.Get("/players/{id}", h.GetPlayer)
		r.Get("/players/{id}/transactions", h.ListPlayerTransactions)
		r.Post("/players/{id}/transactions", h.AddTransaction)
		r.Delete("/transactions/{id}", h.DeleteTransaction)
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/reconcile", h.Reconcile)
	})
	router.Get("/ws/registers/{id}", h.WSRegister)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
