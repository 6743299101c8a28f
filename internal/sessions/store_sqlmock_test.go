package sessions

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// TestGetSession_DatabaseError exercises the error-propagation path that a
// real SQLite failure (disk I/O, corruption) would take, without needing
// to actually break a database file on disk.
func TestGetSession_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, generated, metadata, created_at, updated_at FROM sessions WHERE id = \?`).
		WithArgs("sess-1").
		WillReturnError(errors.New("disk I/O error"))

	s := &Store{db: db}
	_, err = s.GetSession(context.Background(), "sess-1")
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("expected a wrapped database error, not ErrNotFound")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
