// Package history stores readings in a SQL database so they outlive the
// broker's retained state.
package history

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/output"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
)

// Dialect holds the statements that differ between database drivers.
type Dialect interface {
	CreateTable() string
	Insert() string
}

var dialects = map[string]Dialect{}

// RegisterDialect makes a database/sql driver name usable as sql.driver.
func RegisterDialect(driver string, d Dialect) {
	dialects[driver] = d
}

// Drivers lists the registered driver names.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type HistoryOutput struct {
	db     *sql.DB
	insert *sql.Stmt
}

func NewHistory(cfg config.SQLConfig) (output.Output, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown sql driver %q, one of %v", cfg.Driver, Drivers())
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	h, err := newHistory(db, d)
	if err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func newHistory(db *sql.DB, d Dialect) (*HistoryOutput, error) {
	if _, err := db.Exec(d.CreateTable()); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	stmt, err := db.Prepare(d.Insert())
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &HistoryOutput{db: db, insert: stmt}, nil
}

// Publish inserts all readings in one transaction.
func (h *HistoryOutput) Publish(readings []sensor.Reading) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(h.insert)
	for _, r := range readings {
		if _, err := stmt.Exec(r.Timestamp.Unix(), r.Sensor, r.Pin, r.Variant, r.Humidity, r.Temperature, r.Unit); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", r.Sensor, err)
		}
	}
	return tx.Commit()
}

func (h *HistoryOutput) Close() error {
	h.insert.Close()
	return h.db.Close()
}
