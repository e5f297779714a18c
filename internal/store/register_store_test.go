package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"cashgame/internal/models"
)

func TestRegisterStoreCreateOpen(t *testing.T) {
	ctx := context.Background()
	name := "Friday 2/5"
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO open_registers") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 5 || args[0] != "reg-1" || args[3] != "op-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewRegisterStore(stubDB{})
	reg := models.Register{ID: "reg-1", Name: &name, CreatedBy: "op-1", CreatedAt: time.Now()}
	if err := store.CreateOpen(ctx, execer, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterStoreGetOpenForUpdateLocksRow(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") || !strings.Contains(query, "FROM open_registers") {
				t.Fatalf("expected locking read, got: %s", query)
			}
			dest.(*models.Register).ID = args[0].(string)
			return nil
		},
	}
	store := NewRegisterStore(stubDB{})
	reg, err := store.GetOpenForUpdate(ctx, getter, "reg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.ID != "reg-1" || reg.IsClosed() {
		t.Fatalf("unexpected register: %#v", reg)
	}
}

func TestRegisterStoreGetClosedNotFound(t *testing.T) {
	store := NewRegisterStore(stubDB{
		getFn: func(_ context.Context, _ any, query string, _ ...any) error {
			if !strings.Contains(query, "FROM closed_registers") {
				t.Fatalf("unexpected query: %s", query)
			}
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetClosed(context.Background(), "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestRegisterStoreInsertClosedStampsClosedAt(t *testing.T) {
	closedAt := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO closed_registers") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 7 {
				t.Fatalf("unexpected args: %#v", args)
			}
			if got, ok := args[6].(*time.Time); !ok || !got.Equal(closedAt) {
				t.Fatalf("expected closed_at %s, got %#v", closedAt, args[6])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewRegisterStore(stubDB{})
	reg := models.Register{ID: "reg-1", CreatedBy: "op-1", ClosedAt: &closedAt}
	if err := store.InsertClosed(context.Background(), execer, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterStoreDeleteOpenReportsRows(t *testing.T) {
	tx := stubTx{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "DELETE FROM open_registers") || args[0] != "reg-1" {
				t.Fatalf("unexpected delete: %s %#v", query, args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewRegisterStore(stubDB{})
	rows, err := store.DeleteOpen(context.Background(), tx, "reg-1")
	if err != nil || rows != 1 {
		t.Fatalf("expected 1 row, got %d (%v)", rows, err)
	}
}

func TestRegisterStoreListClosedSearch(t *testing.T) {
	ctx := context.Background()
	store := NewRegisterStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "name ILIKE $1") || !strings.Contains(query, "ORDER BY closed_at DESC LIMIT $2 OFFSET $3") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != `%100\%\_run%` || args[1] != 10 || args[2] != 20 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]models.Register) = []models.Register{{ID: "reg-9"}}
			return nil
		},
	})
	rows, err := store.ListClosed(ctx, " 100%_run ", 10, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "reg-9" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestRegisterStoreListClosedWithoutSearch(t *testing.T) {
	store := NewRegisterStore(stubDB{
		selectFn: func(_ context.Context, _ any, query string, args ...any) error {
			if strings.Contains(query, "ILIKE") {
				t.Fatalf("blank search must not filter: %s", query)
			}
			if !strings.Contains(query, "LIMIT $1 OFFSET $2") || len(args) != 2 {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			return nil
		},
	})
	if _, err := store.ListClosed(context.Background(), "   ", 5, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterStoreCountClosed(t *testing.T) {
	store := NewRegisterStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "COUNT(1) FROM closed_registers WHERE name ILIKE $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*int) = 3
			return nil
		},
	})
	count, err := store.CountClosed(context.Background(), "friday")
	if err != nil || count != 3 {
		t.Fatalf("expected 3, got %d (%v)", count, err)
	}
}
