package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"registrationintake/internal/domain"
)

const registrationColumns = `id, name, email, phone_num, grp, sub_grp, file_path, original_file_name, created_at`

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func (r *registrationRepository) Save(ctx context.Context, reg *domain.Registration) error {
	if reg.ID == 0 {
		return r.insert(ctx, reg)
	}
	return r.update(ctx, reg)
}

func (r *registrationRepository) insert(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (name, email, phone_num, grp, sub_grp, file_path, original_file_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		reg.Name, reg.Email, reg.PhoneNum, reg.Grp, reg.SubGrp,
		nullString(reg.FilePath), nullString(reg.OriginalFileName), reg.CreatedAt,
	).Scan(&reg.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *registrationRepository) update(ctx context.Context, reg *domain.Registration) error {
	query := `
		UPDATE registrations
		SET name = $1, email = $2, phone_num = $3, grp = $4, sub_grp = $5, file_path = $6, original_file_name = $7
		WHERE id = $8
	`
	res, err := r.DB.ExecContext(ctx, query,
		reg.Name, reg.Email, reg.PhoneNum, reg.Grp, reg.SubGrp,
		nullString(reg.FilePath), nullString(reg.OriginalFileName), reg.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) List(ctx context.Context) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM registrations WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func scanRegistration(scanner interface{ Scan(...any) error }) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var filePath, originalName sql.NullString
	err := scanner.Scan(&reg.ID, &reg.Name, &reg.Email, &reg.PhoneNum, &reg.Grp, &reg.SubGrp,
		&filePath, &originalName, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	if filePath.Valid {
		reg.FilePath = &filePath.String
	}
	if originalName.Valid {
		reg.OriginalFileName = &originalName.String
	}
	return reg, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && perr.Code == "23505"
}
