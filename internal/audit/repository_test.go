package audit

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openAuditDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck

	schema := `
	CREATE TABLE audit_logs (
		id          TEXT PRIMARY KEY,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT,
		user_id     TEXT,
		source      TEXT NOT NULL,
		details     TEXT,
		created_at  TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestRepository_CreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(openAuditDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:     ActionCommand,
		EntityType: EntityDevice,
		EntityID:   "dev-1",
		UserID:     "user-1",
		Details:    map[string]any{"pin": 13.0, "value": 1.0},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if entry.Source != SourceAPI {
		t.Errorf("Source = %q, want api default", entry.Source)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("List() total = %d, entries = %d", result.Total, len(result.Entries))
	}
	got := result.Entries[0]
	if got.Action != ActionCommand || got.EntityID != "dev-1" {
		t.Errorf("entry = %+v", got)
	}
	if got.Details["pin"] != 13.0 {
		t.Errorf("Details = %v", got.Details)
	}
}

func TestRepository_ListFilters(t *testing.T) {
	repo := NewSQLiteRepository(openAuditDB(t))
	ctx := context.Background()

	seed := []Entry{
		{Action: ActionLogin, EntityType: EntityUser, EntityID: "user-1"},
		{Action: ActionCommand, EntityType: EntityDevice, EntityID: "dev-1"},
		{Action: ActionCommand, EntityType: EntityDevice, EntityID: "dev-2"},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"by action", Filter{Action: ActionCommand}, 2},
		{"by entity type", Filter{EntityType: EntityUser}, 1},
		{"by entity id", Filter{EntityID: "dev-2"}, 1},
		{"combined", Filter{Action: ActionCommand, EntityID: "dev-1"}, 1},
		{"no match", Filter{Action: ActionDelete}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("Total = %d, want %d", result.Total, tt.want)
			}
		})
	}
}

func TestRepository_ListPagination(t *testing.T) {
	repo := NewSQLiteRepository(openAuditDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, &Entry{Action: ActionCreate, EntityType: EntityDevice}); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	result, err := repo.List(ctx, Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}
	if len(result.Entries) != 1 {
		t.Errorf("page size = %d, want 1 (last page)", len(result.Entries))
	}
}
