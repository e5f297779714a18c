package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashgame/internal/auth"
	"cashgame/internal/config"
	"cashgame/internal/db"
	"cashgame/internal/handlers"
	"cashgame/internal/services"
	"cashgame/internal/store"
	"cashgame/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	gate, err := auth.NewSecretGate(cfg.CloseSecret, cfg.EditSecret)
	if err != nil {
		log.Fatalf("failed to hash register secrets: %v", err)
	}

	operators := store.NewOperatorStore(database)
	registers := store.NewRegisterStore(database)
	players := store.NewPlayerStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	registerService := services.NewRegisterService(txRunner, registers, players, transactions, audit, gate, hub)
	transactionService := services.NewTransactionService(txRunner, registers, players, transactions, audit, gate, hub)

	handler := handlers.New(database, txRunner, cfg, operators, audit, registerService, transactionService, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("cash-game ledger listening on %s (%s)", server.Addr, cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
