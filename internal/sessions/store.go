// Package sessions provides the SQLite-backed session store: session
// records and their turn history, persisted across restarts of a single
// proxy process. There is no distributed coordination between multiple
// proxy instances — each process owns its own database file.
package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, registers itself as "sqlite"

	"github.com/nexusrelay/agentproxy/pkg/models"
)

// ErrNotFound is returned when a session id has no matching row.
var ErrNotFound = errors.New("sessions: session not found")

// Store is a SQLite-backed session store. The teacher's own sqlitevec
// backend opens its database under driver name "sqlite3" despite
// importing modernc.org/sqlite, which registers itself as "sqlite" —
// that mismatch only goes unnoticed if mattn/go-sqlite3 is also linked in.
// This store opens under the correct "sqlite" driver name instead.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the session database at path, in
// WAL journal mode, and ensures schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessions: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer-process model, no distributed coordination

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessions: set wal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessions: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			generated INTEGER NOT NULL DEFAULT 0,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			type TEXT,
			status INTEGER NOT NULL DEFAULT 0,
			content TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id, id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sessions: migrate: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateSession fetches the session by id, creating an empty one
// (with its history populated) if none exists yet.
func (s *Store) GetOrCreateSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.getSession(ctx, id)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	session = &models.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, generated, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, boolToInt(session.Generated), "{}", session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sessions: create %s: %w", id, err)
	}
	return session, nil
}

// GetSession fetches a session by id without creating it, returning
// ErrNotFound if it doesn't exist. Used by read-only surfaces like
// /debug/session that must distinguish "missing" from "empty".
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.getSession(ctx, id)
}

func (s *Store) getSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, generated, metadata, created_at, updated_at FROM sessions WHERE id = ?`, id)

	var session models.Session
	var generated int
	var metadataJSON sql.NullString
	if err := row.Scan(&session.ID, &generated, &metadataJSON, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessions: get %s: %w", id, err)
	}
	session.Generated = generated != 0
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &session.Metadata); err != nil {
			return nil, fmt.Errorf("sessions: decode metadata for %s: %w", id, err)
		}
	}

	turns, err := s.listTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	session.History = turns
	return &session, nil
}

func (s *Store) listTurns(ctx context.Context, sessionID string) ([]models.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, type, status, content, metadata, created_at FROM turns WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("sessions: list turns for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		var role string
		var turnType, metadataJSON, content sql.NullString
		if err := rows.Scan(&t.ID, &role, &turnType, &t.Status, &content, &metadataJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessions: scan turn: %w", err)
		}
		t.Role = models.Role(role)
		t.Type = turnType.String
		if content.Valid {
			t.Content = json.RawMessage(content.String)
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &t.Metadata); err != nil {
				return nil, fmt.Errorf("sessions: decode turn metadata: %w", err)
			}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AppendSessionTurn appends a turn to a session's history and bumps
// updated_at, creating the session first if it doesn't exist. The turn's
// ID field is overwritten with the row's assigned autoincrement id.
func (s *Store) AppendSessionTurn(ctx context.Context, sessionID string, turn models.Turn, metadata map[string]any) (models.Turn, error) {
	if _, err := s.GetOrCreateSession(ctx, sessionID); err != nil {
		return models.Turn{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Turn{}, fmt.Errorf("sessions: begin append: %w", err)
	}
	defer tx.Rollback()

	turnMetadataJSON, err := json.Marshal(turn.Metadata)
	if err != nil {
		return models.Turn{}, fmt.Errorf("sessions: encode turn metadata: %w", err)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, type, status, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Type, turn.Status, string(turn.Content), string(turnMetadataJSON), turn.CreatedAt,
	)
	if err != nil {
		return models.Turn{}, fmt.Errorf("sessions: insert turn: %w", err)
	}
	turnID, err := result.LastInsertId()
	if err != nil {
		return models.Turn{}, fmt.Errorf("sessions: insert turn: %w", err)
	}
	turn.ID = turnID

	now := time.Now().UTC()
	if metadata != nil {
		sessionMetadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return models.Turn{}, fmt.Errorf("sessions: encode session metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET metadata = ?, updated_at = ? WHERE id = ?`,
			string(sessionMetadataJSON), now, sessionID,
		); err != nil {
			return models.Turn{}, fmt.Errorf("sessions: update metadata: %w", err)
		}
	} else if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID,
	); err != nil {
		return models.Turn{}, fmt.Errorf("sessions: touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Turn{}, fmt.Errorf("sessions: commit append: %w", err)
	}
	return turn, nil
}

// UpsertSession replaces a session's generated flag and metadata,
// creating it if it doesn't exist. Turn history is untouched.
func (s *Store) UpsertSession(ctx context.Context, id string, generated bool, metadata map[string]any) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("sessions: encode metadata: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, generated, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET generated = excluded.generated, metadata = excluded.metadata, updated_at = excluded.updated_at
	`, id, boolToInt(generated), string(metadataJSON), now, now)
	if err != nil {
		return fmt.Errorf("sessions: upsert %s: %w", id, err)
	}
	return nil
}

// DeleteSession removes a session and, via ON DELETE CASCADE, its turns.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sessions: delete %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessions: delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
