// Package store opens the SQL database behind /db and runs the traced
// liveness probe against it.
//
// SQLite (modernc.org/sqlite, pure Go) and PostgreSQL (lib/pq) are
// registered. The probe runs "select 1 as one" inside an INTERNAL span
// carrying the db.* attributes.
package store
