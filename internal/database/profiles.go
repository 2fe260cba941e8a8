package database

import (
	"context"

	"github.com/google/uuid"
)

const profileColumns = `id, full_name, email, hashed_password, role, is_active, created_at, updated_at`

const getProfileByEmail = `
SELECT ` + profileColumns + `
FROM profiles
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByEmail, email)
	return scanProfile(row)
}

const getProfileByID = `
SELECT ` + profileColumns + `
FROM profiles
WHERE id = $1
`

func (q *Queries) GetProfileByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := q.db.QueryRow(ctx, getProfileByID, id)
	return scanProfile(row)
}

type CreateProfileParams struct {
	FullName       string
	Email          string
	HashedPassword string
	Role           string
}

const createProfile = `
INSERT INTO profiles (full_name, email, hashed_password, role)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE
SET full_name = EXCLUDED.full_name,
    hashed_password = EXCLUDED.hashed_password,
    role = EXCLUDED.role,
    updated_at = now()
RETURNING ` + profileColumns + `
`

// CreateProfile upserts on email; used for operator bootstrap.
func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRow(ctx, createProfile, arg.FullName, arg.Email, arg.HashedPassword, arg.Role)
	return scanProfile(row)
}

func scanProfile(row interface{ Scan(dest ...any) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.HashedPassword, &p.Role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
