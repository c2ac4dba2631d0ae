package store

import (
	"errors"
	"testing"
)

func TestNewDialect(t *testing.T) {
	d, err := NewDialect(DialectSQLite)
	if err != nil || d.DriverName() != "sqlite" {
		t.Errorf("Expected sqlite dialect, got %v (%v)", d, err)
	}
	d, err = NewDialect(DialectPostgres)
	if err != nil || d.DriverName() != "postgres" {
		t.Errorf("Expected postgres dialect, got %v (%v)", d, err)
	}
	if _, err := NewDialect("oracle"); err == nil {
		t.Error("Expected an error for an unknown dialect")
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM runs WHERE id = ? AND kind = ?"
	if got := rebind(sqliteDialect{}, q); got != q {
		t.Errorf("Expected sqlite query unchanged, got %q", got)
	}
	want := "SELECT * FROM runs WHERE id = $1 AND kind = $2"
	if got := rebind(postgresDialect{}, q); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDuplicateKeyDetection(t *testing.T) {
	if !(sqliteDialect{}).IsDuplicateKeyError(errors.New("UNIQUE constraint failed: runs.id")) {
		t.Error("Expected sqlite duplicate key to be detected")
	}
	if !(postgresDialect{}).IsDuplicateKeyError(errors.New(`pq: duplicate key value violates unique constraint "runs_pkey"`)) {
		t.Error("Expected postgres duplicate key to be detected")
	}
	if (postgresDialect{}).IsDuplicateKeyError(nil) {
		t.Error("Expected nil not to be a duplicate key error")
	}
}
