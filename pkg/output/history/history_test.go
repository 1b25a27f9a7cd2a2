package history

import (
	"database/sql"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
)

func TestDrivers(t *testing.T) {
	if got := Drivers(); !reflect.DeepEqual(got, []string{"mysql", "postgres", "sqlite3"}) {
		t.Fatalf("Drivers() = %v", got)
	}
}

func TestPostgresPlaceholders(t *testing.T) {
	if !strings.Contains(postgresDialect{}.Insert(), "$7") {
		t.Fatalf("postgres insert must use numbered placeholders")
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := NewHistory(config.SQLConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLitePublish(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	out, err := NewHistory(config.SQLConfig{Driver: "sqlite3", DSN: dsn})
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	ts := time.Date(2025, 9, 19, 14, 41, 54, 0, time.UTC)
	readings := []sensor.Reading{
		{Sensor: "dht0", Pin: "GPIO4", Variant: "dht11", Humidity: 50, Temperature: 21, Unit: "celsius", Timestamp: ts},
		{Sensor: "attic", Pin: "GPIO17", Variant: "dht22", Humidity: 65.2, Temperature: -2.5, Unit: "celsius", Timestamp: ts},
	}
	if err := out.Publish(readings); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var (
		stamp       int64
		variant     string
		temperature float64
	)
	row := db.QueryRow(`SELECT timestamp, variant, temperature FROM readings WHERE sensor = ?`, "attic")
	if err := row.Scan(&stamp, &variant, &temperature); err != nil {
		t.Fatalf("query: %v", err)
	}
	if stamp != ts.Unix() || variant != "dht22" || temperature != -2.5 {
		t.Fatalf("row: %d %s %v", stamp, variant, temperature)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM readings`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("count = %d, err = %v", n, err)
	}
}
