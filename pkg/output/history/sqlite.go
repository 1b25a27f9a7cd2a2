package history

import (
	_ "github.com/mattn/go-sqlite3" // Load SQLite DB driver
)

type sqliteDialect struct{}

func init() {
	RegisterDialect("sqlite3", sqliteDialect{})
}

func (sqliteDialect) CreateTable() string {
	return `
	CREATE TABLE IF NOT EXISTS readings (
		timestamp   integer,
		sensor      text,
		pin         text,
		variant     text,
		humidity    real,
		temperature real,
		unit        text
	)`
}

func (sqliteDialect) Insert() string {
	return `INSERT INTO readings (
		timestamp, sensor, pin, variant, humidity, temperature, unit
	) VALUES (?, ?, ?, ?, ?, ?, ?)`
}
