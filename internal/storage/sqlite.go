// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/models"
)

const profileColumns = `id, name, place, birth_time, time_zone, latitude, longitude, notes, created_at, updated_at`

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		place TEXT,
		birth_time TIMESTAMP NOT NULL,
		time_zone TEXT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_name ON profiles(name);
	`
	_, err := db.Exec(schema)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	var p models.Profile
	var place, zone, notes sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &place, &p.BirthTime, &zone, &p.Latitude, &p.Longitude, &notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Place, p.TimeZone, p.Notes = place.String, zone.String, notes.String
	p.BirthTime = p.BirthTime.UTC()
	return &p, nil
}

// Create inserts a profile.
func (s *SQLiteStorage) Create(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Place, p.BirthTime.UTC(), p.TimeZone, p.Latitude, p.Longitude, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Get returns a profile by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("profile", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update updates an existing profile.
func (s *SQLiteStorage) Update(ctx context.Context, p *models.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET name = ?, place = ?, birth_time = ?, time_zone = ?, latitude = ?, longitude = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Place, p.BirthTime.UTC(), p.TimeZone, p.Latitude, p.Longitude, p.Notes, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return errs.NotFound("profile", p.ID)
	}
	return nil
}

// Delete removes a profile by ID.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return errs.NotFound("profile", id)
	}
	return nil
}

// List returns profiles with offset and limit.
func (s *SQLiteStorage) List(ctx context.Context, offset, limit int) ([]*models.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY name, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetMany looks up each ID in turn inside one read transaction.
func (s *SQLiteStorage) GetMany(ctx context.Context, ids []string) ([]*models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	out := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := scanProfile(stmt.QueryRowContext(ctx, id))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Count returns the total number of profiles.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
