// Package store is a small document store over SQLite. Each collection keeps
// whole entities as JSON documents keyed by {id, user_id}; reads return the
// exact structure last written. Encryption happens above this layer: the
// store persists whatever bytes it is given.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/nousapp/nous/internal/model"
)

// Collection names.
const (
	Notes        = "notes"
	Templates    = "templates"
	Checklists   = "checklists"
	ChatSessions = "chat_sessions"
	States       = "states"
)

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if necessary) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
	}
	for _, col := range []string{Notes, Templates, ChatSessions, States} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			doc TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, col),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id, updated_at);`, col, col))
	}
	// checklists carry a per-day key on top of the common shape
	stmts = append(stmts, `CREATE TABLE IF NOT EXISTS checklists (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_checklists_user_day ON checklists(user_id, day);`)

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertOne stores a new document in a collection.
func InsertOne(ctx context.Context, s *Store, col, id, userID string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	now := time.Now().Unix()
	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, doc, created_at, updated_at) VALUES (?,?,?,?,?)`, col)
	if _, err := s.db.ExecContext(ctx, query, id, userID, string(raw), now, now); err != nil {
		return fmt.Errorf("insert into %s: %w", col, err)
	}
	return nil
}

// FindOne loads a document by {id, user_id}. A missing document is
// (nil, nil), not an error.
func FindOne[T any](ctx context.Context, s *Store, col, id, userID string) (*T, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = ? AND user_id = ?`, col)
	return scanDoc[T](s.db.QueryRowContext(ctx, query, id, userID), col)
}

// Find lists a user's documents newest-first (by updated_at).
func Find[T any](ctx context.Context, s *Store, col, userID string, limit int) ([]T, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC LIMIT ?`, col)
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", col, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", col, err)
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal %s document: %w", col, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateOne replaces a document and bumps updated_at. Reports whether a
// matching document existed.
func UpdateOne(ctx context.Context, s *Store, col, id, userID string, doc any) (bool, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal document: %w", err)
	}
	query := fmt.Sprintf(`UPDATE %s SET doc = ?, updated_at = ? WHERE id = ? AND user_id = ?`, col)
	res, err := s.db.ExecContext(ctx, query, string(raw), time.Now().Unix(), id, userID)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", col, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteOne removes a document. Reports whether one was removed.
func DeleteOne(ctx context.Context, s *Store, col, id, userID string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, col)
	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", col, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AppendTurns appends a user+assistant turn pair to a stored session and,
// when updateSummary is set, replaces the running summary. The append is one
// atomic document update, so a reader never observes the turns without their
// summary. All inputs are expected to be encrypted already. Reports whether
// the session existed.
func (s *Store) AppendTurns(ctx context.Context, sessionID, userID string, turns []model.ChatTurn, summary string, updateSummary bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var raw string
	row := tx.QueryRowContext(ctx, `SELECT doc FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("load session: %w", err)
	}

	var session model.ChatSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return false, fmt.Errorf("unmarshal session: %w", err)
	}

	session.Turns = append(session.Turns, turns...)
	if updateSummary {
		session.RunningSummary = summary
	}
	session.UpdatedAt = time.Now().UTC()

	updated, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("marshal session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET doc = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(updated), session.UpdatedAt.Unix(), sessionID, userID); err != nil {
		return false, fmt.Errorf("store session: %w", err)
	}

	return true, tx.Commit()
}

// InsertChecklist stores a daily checklist under its {user, day} key.
func (s *Store) InsertChecklist(ctx context.Context, list model.DailyChecklist) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checklists (id, user_id, day, doc, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		list.ID, list.UserID, list.Date, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}
	return nil
}

// FindChecklistByDay loads the checklist for one calendar day, if any.
func (s *Store) FindChecklistByDay(ctx context.Context, userID, day string) (*model.DailyChecklist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM checklists WHERE user_id = ? AND day = ?`, userID, day)
	return scanDoc[model.DailyChecklist](row, Checklists)
}

// LatestState loads the newest state snapshot, if any.
func (s *Store) LatestState(ctx context.Context, userID string) (*model.StateSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM states WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID)
	return scanDoc[model.StateSnapshot](row, States)
}

// InsertUser stores a new account; the email must be unused.
func (s *Store) InsertUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindUserByEmail loads an account by email; (nil, nil) when unknown.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email))
}

// FindUserByID loads an account by id; (nil, nil) when unknown.
func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func scanDoc[T any](row *sql.Row, col string) (*T, error) {
	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s row: %w", col, err)
	}
	var doc T
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s document: %w", col, err)
	}
	return &doc, nil
}
