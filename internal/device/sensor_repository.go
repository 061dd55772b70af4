package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sensor reading query limits.
const (
	defaultReadingLimit = 100
	maxReadingLimit     = 1000
)

// ReadingRepository defines the interface for sensor reading persistence.
type ReadingRepository interface {
	// Insert stores a new sensor reading. The ID and server-assigned
	// timestamp are generated if unset.
	Insert(ctx context.Context, reading *SensorReading) error

	// ListByDevice returns recent readings for a device, newest first.
	// Limit defaults to 100 and is capped at 1000.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]SensorReading, error)
}

// SQLiteReadingRepository implements ReadingRepository using SQLite.
type SQLiteReadingRepository struct {
	db *sql.DB
}

// NewSQLiteReadingRepository creates a new SQLite-backed reading repository.
func NewSQLiteReadingRepository(db *sql.DB) *SQLiteReadingRepository {
	return &SQLiteReadingRepository{db: db}
}

// Insert stores a new sensor reading.
func (r *SQLiteReadingRepository) Insert(ctx context.Context, reading *SensorReading) error {
	if reading.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	if reading.Data == nil {
		reading.Data = map[string]any{}
	}

	data, err := json.Marshal(reading.Data)
	if err != nil {
		return fmt.Errorf("marshalling reading data: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO sensor_readings (id, device_id, data, timestamp) VALUES (?, ?, ?, ?)",
		reading.ID, reading.DeviceID, string(data),
		reading.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor reading: %w", err)
	}
	return nil
}

// ListByDevice returns recent readings for a device, newest first.
func (r *SQLiteReadingRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]SensorReading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultReadingLimit
	}
	if limit > maxReadingLimit {
		limit = maxReadingLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, data, timestamp
		 FROM sensor_readings
		 WHERE device_id = ?
		 ORDER BY timestamp DESC
		 LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	readings := make([]SensorReading, 0, limit)
	for rows.Next() {
		var reading SensorReading
		var data, timestamp string

		if err := rows.Scan(&reading.ID, &reading.DeviceID, &data, &timestamp); err != nil {
			return nil, fmt.Errorf("scanning sensor reading: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &reading.Data); err != nil {
			return nil, fmt.Errorf("unmarshalling reading data: %w", err)
		}
		reading.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp) //nolint:errcheck // format is controlled

		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor readings: %w", err)
	}
	return readings, nil
}
