// Package repostore persists repository metadata and the Git operation log
// using SQLite.
package repostore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Repository is one registered repository view.
type Repository struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
	Ref       string    `json:"ref"`
	BaseURL   string    `json:"base_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "owner/repo".
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Operation is one completed Git tool invocation.
type Operation struct {
	ID         int64     `json:"id"`
	Repository string    `json:"repository"`
	Service    string    `json:"service"`
	Kind       string    `json:"kind"` // "issue_created", "pull_request_created", "permissions_checked"
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store manages repository and operation persistence in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS repositories (
			id         TEXT PRIMARY KEY,
			service    TEXT NOT NULL,
			owner      TEXT NOT NULL,
			repo       TEXT NOT NULL,
			ref        TEXT NOT NULL DEFAULT 'main',
			base_url   TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
			UNIQUE (service, owner, repo)
		);

		CREATE TABLE IF NOT EXISTS operations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			repository TEXT NOT NULL,
			service    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			url        TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_operations_repository
			ON operations(repository);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRepository inserts a repository or refreshes its ref/base_url if the
// (service, owner, repo) triple already exists. A missing ID is assigned.
func (s *Store) UpsertRepository(r *Repository) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Ref == "" {
		r.Ref = "main"
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO repositories (id, service, owner, repo, ref, base_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (service, owner, repo) DO UPDATE SET
			ref = excluded.ref,
			base_url = excluded.base_url,
			updated_at = excluded.updated_at`,
		r.ID, r.Service, r.Owner, r.Repo, r.Ref, r.BaseURL, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// GetRepository retrieves a repository by its service/owner/repo triple.
func (s *Store) GetRepository(service, owner, repo string) (*Repository, error) {
	row := s.db.QueryRow(
		`SELECT id, service, owner, repo, ref, base_url, created_at, updated_at
		 FROM repositories WHERE service = ? AND owner = ? AND repo = ?`,
		service, owner, repo,
	)
	r := &Repository{}
	err := row.Scan(&r.ID, &r.Service, &r.Owner, &r.Repo, &r.Ref, &r.BaseURL, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRepositories returns all repositories ordered by last update (newest
// first).
func (s *Store) ListRepositories() ([]*Repository, error) {
	rows, err := s.db.Query(
		`SELECT id, service, owner, repo, ref, base_url, created_at, updated_at
		 FROM repositories ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []*Repository
	for rows.Next() {
		r := &Repository{}
		if err := rows.Scan(&r.ID, &r.Service, &r.Owner, &r.Repo, &r.Ref, &r.BaseURL, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// RecordOperation inserts an operation log entry and returns its ID.
func (s *Store) RecordOperation(op *Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	result, err := s.db.Exec(
		`INSERT INTO operations (repository, service, kind, title, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		op.Repository, op.Service, op.Kind, op.Title, op.URL, op.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	op.ID = id
	return nil
}

// ListOperations returns up to limit operations for a repository, newest
// first. A non-positive limit returns everything.
func (s *Store) ListOperations(repository string, limit int) ([]*Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, repository, service, kind, title, url, created_at
		 FROM operations
		 WHERE repository = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		repository, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.ID, &op.Repository, &op.Service, &op.Kind, &op.Title, &op.URL, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
