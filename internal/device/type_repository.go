package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TypeRepository defines the interface for device type persistence.
type TypeRepository interface {
	Create(ctx context.Context, t *Type) error
	GetByID(ctx context.Context, id string) (*Type, error)
	List(ctx context.Context) ([]Type, error)
}

// SQLiteTypeRepository implements TypeRepository using SQLite.
type SQLiteTypeRepository struct {
	db *sql.DB
}

// NewSQLiteTypeRepository creates a new SQLite-backed device type repository.
func NewSQLiteTypeRepository(db *sql.DB) *SQLiteTypeRepository {
	return &SQLiteTypeRepository{db: db}
}

// Create inserts a new device type. The ID is generated if empty.
func (r *SQLiteTypeRepository) Create(ctx context.Context, t *Type) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.PinsConfig == nil {
		t.PinsConfig = []PinConfig{}
	}
	t.CreatedAt = time.Now().UTC()

	pins, err := json.Marshal(t.PinsConfig)
	if err != nil {
		return fmt.Errorf("marshalling pins config: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO device_types (id, name, description, pins_config, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, nullString(t.Description), string(pins),
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating device type: %w", err)
	}
	return nil
}

// GetByID retrieves a device type by its unique identifier.
func (r *SQLiteTypeRepository) GetByID(ctx context.Context, id string) (*Type, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, pins_config, created_at FROM device_types WHERE id = ?", id)
	return scanType(row)
}

// List retrieves all device types ordered by name.
func (r *SQLiteTypeRepository) List(ctx context.Context) ([]Type, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, pins_config, created_at FROM device_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing device types: %w", err)
	}
	defer rows.Close()

	types := []Type{}
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device types: %w", err)
	}
	return types, nil
}

// scanType scans a device type from a row or rows.
func scanType(s scanner) (*Type, error) {
	var t Type
	var description sql.NullString
	var pins, createdAt string

	if err := s.Scan(&t.ID, &t.Name, &description, &pins, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("scanning device type: %w", err)
	}

	t.Description = description.String
	if err := json.Unmarshal([]byte(pins), &t.PinsConfig); err != nil {
		return nil, fmt.Errorf("unmarshalling pins config: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &t, nil
}
