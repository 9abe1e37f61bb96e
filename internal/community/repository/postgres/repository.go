package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nuvemautoma/hot-class/db"
	"github.com/nuvemautoma/hot-class/internal/community/domain"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

// PostgresRepository implements domain.GroupRepository and domain.NotificationRepository.
type PostgresRepository struct {
	db db.DBTX
}

func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const selectGroupColumns = `
	SELECT id, name, description, icon, link, platform, created_at, updated_at
	FROM groups
`

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Icon, &g.Link, &g.Platform, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *PostgresRepository) ListGroups(ctx context.Context, filter domain.GroupFilter) ([]domain.Group, error) {
	rows, err := r.db.Query(ctx, selectGroupColumns+`
		WHERE ($1 = '' OR platform = $1)
			AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY name ASC
	`, filter.Platform, filter.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *PostgresRepository) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	g, err := scanGroup(r.db.QueryRow(ctx, selectGroupColumns+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsMalformedID(err) {
			return nil, autherror.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) CreateGroup(ctx context.Context, g *domain.Group) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO groups (id, name, description, icon, link, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.Name, g.Description, g.Icon, g.Link, g.Platform, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateGroup(ctx context.Context, g *domain.Group) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE groups
		SET name = $2, description = $3, icon = $4, link = $5, platform = $6, updated_at = $7
		WHERE id = $1
	`, g.ID, g.Name, g.Description, g.Icon, g.Link, g.Platform, g.UpdatedAt)
	if err != nil {
		if db.IsMalformedID(err) {
			return autherror.ErrGroupNotFound
		}
		return fmt.Errorf("failed to update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrGroupNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteGroup(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		if db.IsMalformedID(err) {
			return autherror.ErrGroupNotFound
		}
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrGroupNotFound
	}
	return nil
}

func (r *PostgresRepository) CountGroups(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}
