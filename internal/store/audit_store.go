package store

import (
	"context"
	"time"
)

type AuditStore struct {
	db DB
}

type AuditEntry struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"-"`
	Actor       string    `db:"-" json:"actor"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	RegisterID  *string   `db:"register_id" json:"register_id,omitempty"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records an event that belongs to no register, such as operator sign-ups.
func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID, data string) error {
	return s.insert(ctx, tx, nil, actorID, action, entityType, entityID, data)
}

// LogForRegister records an event on a register or on one of its players or
// transactions, tagged so the register's trail picks it up.
func (s *AuditStore) LogForRegister(ctx context.Context, tx Execer, registerID, actorID, action, entityType, entityID, data string) error {
	return s.insert(ctx, tx, &registerID, actorID, action, entityType, entityID, data)
}

func (s *AuditStore) insert(ctx context.Context, tx Execer, registerID *string, actorID, action, entityType, entityID, data string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, register_id, data)
		VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5, $6)
	`, actorID, action, entityType, entityID, registerID, data)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]AuditEntry, error) {
	var rows []AuditEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_user_id, action, entity_type, entity_id, register_id, data, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return withActors(rows), nil
}

// ListForRegister returns the trail of one register together with the events
// on its players and transactions.
func (s *AuditStore) ListForRegister(ctx context.Context, registerID string) ([]AuditEntry, error) {
	var rows []AuditEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_user_id, action, entity_type, entity_id, register_id, data, created_at
		FROM audit_logs
		WHERE register_id = $1
		ORDER BY created_at DESC
	`, registerID)
	if err != nil {
		return nil, err
	}
	return withActors(rows), nil
}

func withActors(rows []AuditEntry) []AuditEntry {
	for i := range rows {
		rows[i].Actor = derefStringPtr(rows[i].ActorUserID)
	}
	return rows
}
