package postgres

import (
	"context"
	"fmt"

	"github.com/nuvemautoma/hot-class/db"
	"github.com/nuvemautoma/hot-class/internal/auth/domain"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

func (r *PostgresRepository) ListAuthorizedIPs(ctx context.Context, userID string) ([]domain.AuthorizedIP, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, ip_address, is_extra_slot, created_at
		FROM authorized_ips
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		if db.IsMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query authorized ips: %w", err)
	}
	defer rows.Close()

	var ips []domain.AuthorizedIP
	for rows.Next() {
		var ip domain.AuthorizedIP
		if err := rows.Scan(&ip.ID, &ip.UserID, &ip.IPAddress, &ip.IsExtraSlot, &ip.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan authorized ip: %w", err)
		}
		ips = append(ips, ip)
	}
	if err := rows.Err(); err != nil {
		if db.IsMalformedID(err) {
			return nil, nil
		}
		return nil, err
	}
	return ips, nil
}

func (r *PostgresRepository) CountExtraSlotGrants(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM extra_slot_grants WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		if db.IsMalformedID(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count extra slot grants: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) InsertAuthorizedIP(ctx context.Context, ip *domain.AuthorizedIP) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO authorized_ips (id, user_id, ip_address, is_extra_slot, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, ip_address) DO NOTHING
	`, ip.ID, ip.UserID, ip.IPAddress, ip.IsExtraSlot, ip.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert authorized ip: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) InsertExtraSlotGrant(ctx context.Context, grant *domain.ExtraSlotGrant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO extra_slot_grants (id, user_id, created_at)
		VALUES ($1, $2, $3)
	`, grant.ID, grant.UserID, grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert extra slot grant: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAuthorizedIP(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM authorized_ips WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if db.IsMalformedID(err) {
			return autherror.ErrDeviceNotFound
		}
		return fmt.Errorf("failed to delete authorized ip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrDeviceNotFound
	}
	return nil
}
