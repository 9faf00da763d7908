// Package sqlite implements the registration record store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"registrationintake/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	phone_num TEXT NOT NULL,
	grp TEXT NOT NULL,
	sub_grp TEXT NOT NULL,
	file_path TEXT,
	original_file_name TEXT,
	created_at TEXT NOT NULL
);`

const registrationColumns = `id, name, email, phone_num, grp, sub_grp, file_path, original_file_name, created_at`

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" is accepted for tests.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writes serialized and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// registrationRepository implements domain.RegistrationRepository using SQLite.
type registrationRepository struct {
	db *sql.DB
}

// NewRegistrationRepository returns a repository backed by db. The schema must already exist (see Open).
func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{db: db}
}

// Save inserts a new row when reg.ID is zero and sets the ID; otherwise it updates the existing row.
func (r *registrationRepository) Save(ctx context.Context, reg *domain.Registration) error {
	if reg.ID == 0 {
		result, err := r.db.ExecContext(ctx,
			`INSERT INTO registrations (name, email, phone_num, grp, sub_grp, file_path, original_file_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			reg.Name, reg.Email, reg.PhoneNum, reg.Grp, reg.SubGrp,
			nullString(reg.FilePath), nullString(reg.OriginalFileName), formatTime(reg.CreatedAt),
		)
		if err != nil {
			if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) {
				return domain.ErrDuplicateEmail
			}
			return fmt.Errorf("failed to insert registration: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		reg.ID = id
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations
		SET name = ?, email = ?, phone_num = ?, grp = ?, sub_grp = ?, file_path = ?, original_file_name = ?
		WHERE id = ?`,
		reg.Name, reg.Email, reg.PhoneNum, reg.Grp, reg.SubGrp,
		nullString(reg.FilePath), nullString(reg.OriginalFileName), reg.ID,
	)
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update registration: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) List(ctx context.Context) ([]*domain.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM registrations WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// scanRegistration scans a row into a Registration.
func scanRegistration(scanner interface{ Scan(...any) error }) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var filePath, originalName sql.NullString
	var createdAt string
	err := scanner.Scan(&reg.ID, &reg.Name, &reg.Email, &reg.PhoneNum, &reg.Grp, &reg.SubGrp,
		&filePath, &originalName, &createdAt)
	if err != nil {
		return nil, err
	}
	if filePath.Valid {
		reg.FilePath = &filePath.String
	}
	if originalName.Valid {
		reg.OriginalFileName = &originalName.String
	}
	reg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return reg, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
