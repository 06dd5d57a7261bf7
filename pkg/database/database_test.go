package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type sqlStateErr string

func (e sqlStateErr) Error() string    { return "sql error " + string(e) }
func (e sqlStateErr) SQLState() string { return string(e) }

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{}); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("expected ErrMissingDSN, got %v", err)
	}
	if _, err := Open(context.Background(), Config{DSN: "postgres://localhost/db", Driver: "mysql"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	if !IsUniqueViolation(fmt.Errorf("insert: %w", sqlStateErr("23505"))) {
		t.Fatal("expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(sqlStateErr("23503")) {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error is not a unique violation")
	}
}
