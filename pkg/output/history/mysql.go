package history

import (
	_ "github.com/go-sql-driver/mysql"
)

type mysqlDialect struct{}

func init() {
	RegisterDialect("mysql", mysqlDialect{})
}

func (mysqlDialect) CreateTable() string {
	return `
	CREATE TABLE IF NOT EXISTS readings (
		timestamp   BIGINT,
		sensor      VARCHAR(64),
		pin         VARCHAR(32),
		variant     VARCHAR(16),
		humidity    DOUBLE,
		temperature DOUBLE,
		unit        VARCHAR(16)
	)`
}

func (mysqlDialect) Insert() string {
	return `INSERT INTO readings (
		timestamp, sensor, pin, variant, humidity, temperature, unit
	) VALUES (?, ?, ?, ?, ?, ?, ?)`
}
