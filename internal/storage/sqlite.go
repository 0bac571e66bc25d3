// Package storage persists users, sessions, derived artifacts, summaries,
// and evaluation reports in a single SQLite database.
package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobprep/interviewd/internal/session"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database. It implements the session store and the
// artifact store consumed by the session manager.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "interviewd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Users ---

func (s *Store) CreateUser(email, passwordHash string) error {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO users (email, password_hash, created_at)
		VALUES (?, ?, ?)`,
		email, passwordHash, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserExists
	}
	return nil
}

func (s *Store) GetUser(email string) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRow(`
		SELECT email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

// --- Sessions ---

// SaveSession upserts the full session document. The user email, state, and
// creation time are denormalized into columns for listing queries.
func (s *Store) SaveSession(sess *session.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, user_email, state, created_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, doc = excluded.doc`,
		sess.ID, sess.UserEmail, string(sess.State), sess.CreatedAt.UTC().Format(time.RFC3339Nano), string(doc),
	)
	return err
}

func (s *Store) GetSession(id string) (*session.Session, bool, error) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM sessions WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, false, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &sess, true, nil
}

// ListSessions returns session metadata for a user, newest first.
func (s *Store) ListSessions(userEmail string) ([]session.Meta, error) {
	rows, err := s.db.Query(`
		SELECT id, user_email, state, created_at FROM sessions
		WHERE user_email = ? ORDER BY created_at DESC`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []session.Meta
	for rows.Next() {
		var meta session.Meta
		var state, createdAt string
		if err := rows.Scan(&meta.ID, &meta.UserEmail, &state, &createdAt); err != nil {
			return nil, err
		}
		meta.State = session.State(state)
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		meta.CreatedAt = t
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// ListSessionUsers returns every distinct email owning at least one session.
func (s *Store) ListSessionUsers() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT user_email FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		users = append(users, email)
	}
	return users, rows.Err()
}

// PruneSessions deletes a user's oldest sessions beyond keep, along with
// their summaries and evaluation reports. It returns the number of sessions
// deleted.
func (s *Store) PruneSessions(userEmail string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id FROM sessions WHERE user_email = ?
		ORDER BY created_at DESC LIMIT -1 OFFSET ?`, userEmail, keep)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, id := range ids {
		for _, stmt := range []string{
			"DELETE FROM sessions WHERE id = ?",
			"DELETE FROM summaries WHERE session_id = ?",
			"DELETE FROM evaluations WHERE session_id = ?",
		} {
			if _, err := tx.Exec(stmt, id); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// --- Summaries ---

// SaveSummary inserts the summary document once; later writes for the same
// session are no-ops, so the first computed summary stays authoritative.
func (s *Store) SaveSummary(sessionID string, doc []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO summaries (session_id, doc, created_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		sessionID, string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetSummary(sessionID string) ([]byte, bool, error) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM summaries WHERE session_id = ?", sessionID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(doc), true, nil
}

// --- Evaluations ---

func (s *Store) SaveEvaluation(sessionID string, doc []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO evaluations (session_id, doc, created_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET doc = excluded.doc, created_at = excluded.created_at`,
		sessionID, string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetEvaluation(sessionID string) ([]byte, bool, error) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM evaluations WHERE session_id = ?", sessionID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(doc), true, nil
}

// --- Artifacts ---

func (s *Store) GetArtifact(hash, kind string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM artifacts WHERE content_hash = ? AND kind = ?`, hash, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) PutArtifact(hash, kind string, payload []byte, createdAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO artifacts (content_hash, kind, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(content_hash, kind) DO NOTHING`,
		hash, kind, payload, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}
