// Package storage persists users, timing preferences, mood entries and the
// send log in SQLite (modernc.org/sqlite, no cgo).
//
// Times are stored as unix milliseconds; clock times as minutes since midnight.
// The store keeps no cache: every read hits the database.
package storage
