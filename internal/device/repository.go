package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByIDAndOwner retrieves a device only if it belongs to the given user.
	// Returns ErrDeviceNotFound for both "missing" and "not owned" — callers
	// must not be able to distinguish the two.
	GetByIDAndOwner(ctx context.Context, id, userID string) (*Device, error)

	// ListByOwner retrieves all devices belonging to a user.
	ListByOwner(ctx context.Context, userID string) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Delete removes a device if it belongs to the given user.
	// Returns ErrDeviceNotFound if no matching row was deleted.
	Delete(ctx context.Context, id, userID string) error

	// UpdateStatus updates the liveness record: status and last_seen.
	// This is the single write path the connection layer uses to keep
	// persisted status consistent with channel presence.
	UpdateStatus(ctx context.Context, id, status string, lastSeen time.Time) error

	// UpdateIP records the source address a device last connected from.
	UpdateIP(ctx context.Context, id, ip string) error

	// UpdateFirmwareVersion records the firmware version a device reports
	// after a successful OTA update.
	UpdateFirmwareVersion(ctx context.Context, id, version string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, device_type_id, user_id, auth_token, status,
	last_seen, firmware_version, ip_address, created_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	return scanDevice(row)
}

// GetByIDAndOwner retrieves a device only if it belongs to the given user.
func (r *SQLiteRepository) GetByIDAndOwner(ctx context.Context, id, userID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE id = ? AND user_id = ?", id, userID)
	return scanDevice(row)
}

// ListByOwner retrieves all devices belonging to a user, newest first.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, userID string) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device. ID and auth token are generated if empty;
// status defaults to offline.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.AuthToken == "" {
		d.AuthToken = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = StatusOffline
	}
	d.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, device_type_id, user_id, auth_token, status,
			last_seen, firmware_version, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.DeviceTypeID, d.UserID, d.AuthToken, d.Status,
		nullTime(d.LastSeen), nullString(d.FirmwareVersion), nullString(d.IPAddress),
		d.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDeviceExists
		}
		return fmt.Errorf("creating device: %w", err)
	}
	return nil
}

// Delete removes a device if it belongs to the given user.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM devices WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// UpdateStatus updates the liveness record: status and last_seen.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id, status string, lastSeen time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET status = ?, last_seen = ? WHERE id = ?",
		status, lastSeen.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// UpdateIP records the source address a device last connected from.
func (r *SQLiteRepository) UpdateIP(ctx context.Context, id, ip string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET ip_address = ? WHERE id = ?", ip, id)
	if err != nil {
		return fmt.Errorf("updating device ip: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// UpdateFirmwareVersion records the firmware version a device reports.
func (r *SQLiteRepository) UpdateFirmwareVersion(ctx context.Context, id, version string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET firmware_version = ? WHERE id = ?", version, id)
	if err != nil {
		return fmt.Errorf("updating firmware version: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a device from a row or rows.
func scanDevice(s scanner) (*Device, error) {
	var d Device
	var lastSeen, firmwareVersion, ipAddress sql.NullString
	var createdAt string

	err := s.Scan(&d.ID, &d.Name, &d.DeviceTypeID, &d.UserID, &d.AuthToken,
		&d.Status, &lastSeen, &firmwareVersion, &ipAddress, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
			d.LastSeen = &t
		}
	}
	d.FirmwareVersion = firmwareVersion.String
	d.IPAddress = ipAddress.String
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &d, nil
}

// nullString converts an empty string to NULL for optional columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime converts a nil time pointer to NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
