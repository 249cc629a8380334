package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/carbonatlas/geoauth/internal/identity"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

type identitiesRepo struct {
	db *sql.DB
}

const identityColumns = `subject_id, email, display_name, email_verified, role, created_at, updated_at`

func (r *identitiesRepo) GetBySubject(ctx context.Context, subjectID string) (identity.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE subject_id = ?`, subjectID)
	return scanIdentity(row)
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (identity.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return scanIdentity(row)
}

func (r *identitiesRepo) Create(ctx context.Context, id identity.Identity) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (subject_id, email, display_name, email_verified, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.SubjectID, id.Email, id.DisplayName, id.EmailVerified, string(id.Role), now, now)
	return err
}

func (r *identitiesRepo) SetEmailVerified(ctx context.Context, subjectID string, verified bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET email_verified = ?, updated_at = ? WHERE subject_id = ?`,
		verified, time.Now().UTC(), subjectID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func scanIdentity(row *sql.Row) (identity.Identity, error) {
	var id identity.Identity
	var role string
	err := row.Scan(
		&id.SubjectID,
		&id.Email,
		&id.DisplayName,
		&id.EmailVerified,
		&role,
		&id.CreatedAt,
		&id.UpdatedAt,
	)
	if err != nil {
		return identity.Identity{}, mapNotFound(err)
	}
	id.Role = ssotoken.Role(role)
	return id, nil
}
