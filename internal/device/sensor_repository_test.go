package device

import (
	"context"
	"testing"
	"time"
)

func TestReadingRepository_InsertAssignsFields(t *testing.T) {
	repo := NewSQLiteReadingRepository(openTestDB(t))
	ctx := context.Background()

	reading := &SensorReading{
		DeviceID: "dev-1",
		Data:     map[string]any{"temperature": 21.5, "humidity": 60.0},
	}
	if err := repo.Insert(ctx, reading); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if reading.ID == "" {
		t.Error("Insert() did not assign an ID")
	}
	if reading.Timestamp.IsZero() {
		t.Error("Insert() did not assign a timestamp")
	}

	if err := repo.Insert(ctx, &SensorReading{}); err == nil {
		t.Error("Insert() without device id should fail")
	}
}

func TestReadingRepository_ListByDevice(t *testing.T) {
	repo := NewSQLiteReadingRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		reading := &SensorReading{
			DeviceID:  "dev-1",
			Data:      map[string]any{"seq": float64(i)},
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Insert(ctx, reading); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}
	if err := repo.Insert(ctx, &SensorReading{DeviceID: "dev-2", Data: map[string]any{"seq": 99.0}}); err != nil {
		t.Fatalf("Insert(other) error = %v", err)
	}

	readings, err := repo.ListByDevice(ctx, "dev-1", 0)
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("ListByDevice() returned %d readings, want 3", len(readings))
	}
	// Newest first.
	if readings[0].Data["seq"] != float64(2) {
		t.Errorf("first reading seq = %v, want 2", readings[0].Data["seq"])
	}

	limited, err := repo.ListByDevice(ctx, "dev-1", 2)
	if err != nil {
		t.Fatalf("ListByDevice(limit 2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListByDevice(limit 2) returned %d readings", len(limited))
	}
}

func TestReadingRepository_LimitCapped(t *testing.T) {
	repo := NewSQLiteReadingRepository(openTestDB(t))

	// An absurd limit must not error; it is clamped internally.
	readings, err := repo.ListByDevice(context.Background(), "dev-1", 1_000_000)
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("ListByDevice() returned %d readings, want 0", len(readings))
	}
}
