package handlers

import (
	"context"

	"cashgame/internal/auth"
	"cashgame/internal/models"
	"cashgame/internal/services"
	"cashgame/internal/store"
)

type OperatorStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.Operator, error)
	GetByID(ctx context.Context, operatorID string) (models.Operator, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
	ListForRegister(ctx context.Context, registerID string) ([]store.AuditEntry, error)
}

type RegisterService interface {
	Create(ctx context.Context, actor auth.Actor, name, notes *string) (models.Register, error)
	AddPlayer(ctx context.Context, actor auth.Actor, registerID, name string) (models.Player, error)
	Close(ctx context.Context, actor auth.Actor, registerID string) (models.Register, error)
	AuthorizeEdit(ctx context.Context, actor auth.Actor, registerID, secret string) (auth.Actor, error)
	ListOpen(ctx context.Context) ([]models.Register, error)
	ListClosed(ctx context.Context, search string, page, limit int) (services.ClosedPage, error)
	Detail(ctx context.Context, registerID string) (models.RegisterDetail, error)
}

type TransactionService interface {
	Append(ctx context.Context, actor auth.Actor, req services.AppendRequest) (models.Transaction, error)
	Remove(ctx context.Context, actor auth.Actor, transactionID string) error
	ListByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error)
	PlayerPosition(ctx context.Context, playerID string) (models.PlayerPosition, error)
}

var (
	_ RegisterService    = (*services.RegisterService)(nil)
	_ TransactionService = (*services.TransactionService)(nil)
)
