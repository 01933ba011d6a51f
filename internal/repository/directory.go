package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ticketline/deskbot/internal/domain"
)

// DirectoryRepo resolves bindings between platform identities and local
// accounts, and lists departments a ticket can target.
type DirectoryRepo struct {
	db *pgxpool.Pool
}

func NewDirectoryRepo(db *pgxpool.Pool) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// Activate creates the binding on first contact or reactivates a blocked one.
func (r *DirectoryRepo) Activate(ctx context.Context, externalID string) (*domain.Binding, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO bindings (external_user_id, status)
		VALUES ($1, $2)
		ON CONFLICT (external_user_id)
		DO UPDATE SET status = $2, updated_at = now()
		RETURNING user_id, external_user_id, status, created_at, updated_at`,
		externalID, domain.BindingActive)
	return scanBinding(row)
}

func (r *DirectoryRepo) Block(ctx context.Context, externalID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bindings SET status = $1, updated_at = now()
		WHERE external_user_id = $2`,
		domain.BindingBlocked, externalID)
	if err != nil {
		return fmt.Errorf("block binding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBindingNotFound
	}
	return nil
}

func (r *DirectoryRepo) ByExternalID(ctx context.Context, externalID string) (*domain.Binding, error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id, external_user_id, status, created_at, updated_at
		FROM bindings WHERE external_user_id = $1`,
		externalID)
	return scanBinding(row)
}

func (r *DirectoryRepo) ByUserID(ctx context.Context, userID int64) (*domain.Binding, error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id, external_user_id, status, created_at, updated_at
		FROM bindings WHERE user_id = $1`,
		userID)
	return scanBinding(row)
}

func (r *DirectoryRepo) ListActive(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, active FROM departments WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var deps []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Active); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (r *DirectoryRepo) Get(ctx context.Context, id int64) (*domain.Department, error) {
	var d domain.Department
	err := r.db.QueryRow(ctx, `
		SELECT id, name, active FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &d, nil
}

func scanBinding(row pgx.Row) (*domain.Binding, error) {
	var b domain.Binding
	err := row.Scan(&b.UserID, &b.ExternalUserID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBindingNotFound
		}
		return nil, fmt.Errorf("scan binding: %w", err)
	}
	return &b, nil
}
