package history

import (
	_ "github.com/lib/pq"
)

type postgresDialect struct{}

func init() {
	RegisterDialect("postgres", postgresDialect{})
}

func (postgresDialect) CreateTable() string {
	return `
	CREATE TABLE IF NOT EXISTS readings (
		timestamp   bigint,
		sensor      text,
		pin         text,
		variant     text,
		humidity    double precision,
		temperature double precision,
		unit        text
	)`
}

func (postgresDialect) Insert() string {
	return `INSERT INTO readings (
		timestamp, sensor, pin, variant, humidity, temperature, unit
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`
}
