package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/beacon/internal/shared"
)

// Repository defines persistence operations for identity records.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	Insert(ctx context.Context, name, email, passwordHash string, role Role) (*Projection, error)
}

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL. Emails are stored
// already normalized; the unique index on email is the authoritative
// uniqueness guarantee.
type PGRepository struct {
	db Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db Querier) *PGRepository {
	return &PGRepository{db: db}
}

// FindByEmail fetches an identity by normalized email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	const query = `SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM identities WHERE email = $1`
	var rec Identity
	err := r.db.QueryRow(ctx, query, email).Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.PasswordHash, &rec.Role, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("identity: find by email: %w", err)
	}
	return &rec, nil
}

// Insert persists a new identity and returns only the non-secret projection.
// A lost uniqueness race surfaces as shared.ErrEmailTaken so callers treat it
// the same as a failed pre-check.
func (r *PGRepository) Insert(ctx context.Context, name, email, passwordHash string, role Role) (*Projection, error) {
	const query = `INSERT INTO identities (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, role, created_at`
	var proj Projection
	err := r.db.QueryRow(ctx, query, name, email, passwordHash, role).Scan(
		&proj.ID, &proj.Name, &proj.Email, &proj.Role, &proj.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: insert: %w", err)
	}
	return &proj, nil
}

var _ Repository = (*PGRepository)(nil)
