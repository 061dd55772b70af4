package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FirmwareRepository defines the interface for firmware image persistence.
type FirmwareRepository interface {
	// Create stores a new firmware image (base64 file data included).
	Create(ctx context.Context, fw *Firmware) error

	// GetByID retrieves a firmware image including its file data.
	GetByID(ctx context.Context, id string) (*Firmware, error)

	// ListByDeviceType retrieves active firmware versions for a device type,
	// newest first, WITHOUT file data (images can be megabytes).
	ListByDeviceType(ctx context.Context, deviceTypeID string) ([]Firmware, error)
}

// SQLiteFirmwareRepository implements FirmwareRepository using SQLite.
type SQLiteFirmwareRepository struct {
	db *sql.DB
}

// NewSQLiteFirmwareRepository creates a new SQLite-backed firmware repository.
func NewSQLiteFirmwareRepository(db *sql.DB) *SQLiteFirmwareRepository {
	return &SQLiteFirmwareRepository{db: db}
}

// Create stores a new firmware image. The ID is generated if empty.
func (r *SQLiteFirmwareRepository) Create(ctx context.Context, fw *Firmware) error {
	if fw.ID == "" {
		fw.ID = uuid.NewString()
	}
	fw.IsActive = true
	fw.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO firmware_versions (id, device_type_id, version, file_data, file_size, description, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fw.ID, fw.DeviceTypeID, fw.Version, fw.FileData, fw.FileSize,
		nullString(fw.Description), boolToInt(fw.IsActive),
		fw.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating firmware: %w", err)
	}
	return nil
}

// GetByID retrieves a firmware image including its file data.
func (r *SQLiteFirmwareRepository) GetByID(ctx context.Context, id string) (*Firmware, error) {
	var fw Firmware
	var description sql.NullString
	var isActive int
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, device_type_id, version, file_data, file_size, description, is_active, created_at
		 FROM firmware_versions WHERE id = ?`, id).
		Scan(&fw.ID, &fw.DeviceTypeID, &fw.Version, &fw.FileData, &fw.FileSize,
			&description, &isActive, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFirmwareNotFound
		}
		return nil, fmt.Errorf("querying firmware: %w", err)
	}

	fw.Description = description.String
	fw.IsActive = isActive != 0
	fw.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &fw, nil
}

// ListByDeviceType retrieves active firmware versions without file data.
func (r *SQLiteFirmwareRepository) ListByDeviceType(ctx context.Context, deviceTypeID string) ([]Firmware, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_type_id, version, file_size, description, is_active, created_at
		 FROM firmware_versions
		 WHERE device_type_id = ? AND is_active = 1
		 ORDER BY created_at DESC`, deviceTypeID)
	if err != nil {
		return nil, fmt.Errorf("listing firmware: %w", err)
	}
	defer rows.Close()

	versions := []Firmware{}
	for rows.Next() {
		var fw Firmware
		var description sql.NullString
		var isActive int
		var createdAt string

		if err := rows.Scan(&fw.ID, &fw.DeviceTypeID, &fw.Version, &fw.FileSize,
			&description, &isActive, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning firmware: %w", err)
		}

		fw.Description = description.String
		fw.IsActive = isActive != 0
		fw.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		versions = append(versions, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating firmware: %w", err)
	}
	return versions, nil
}

// boolToInt converts a bool to SQLite's 0/1 integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
