package postgres

import (
	"context"
	"fmt"

	"github.com/nuvemautoma/hot-class/internal/auth/domain"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/nuvemautoma/hot-class/pkg/constant"
)

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, selectUserColumns+`ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.EmailChanged,
			&u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, userID string, admin bool) error {
	var err error
	if admin {
		_, err = r.db.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
			ON CONFLICT (user_id, role) DO NOTHING
		`, userID, constant.RoleAdmin)
	} else {
		_, err = r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, constant.RoleAdmin)
	}
	if err != nil {
		return fmt.Errorf("failed to update admin role: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordAction(ctx context.Context, entry *domain.AdminActionLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_action_logs (id, actor_id, action, target_user_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.ActorID, entry.Action, entry.TargetUserID, entry.Details, entry.CreatedAt)
	return err
}

func (r *PostgresRepository) ListActions(ctx context.Context, limit int) ([]domain.AdminActionLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, action, target_user_id, details, created_at
		FROM admin_action_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin actions: %w", err)
	}
	defer rows.Close()

	var entries []domain.AdminActionLog
	for rows.Next() {
		var e domain.AdminActionLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetUserID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin action: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresRepository) CreateResetCode(ctx context.Context, code *domain.PasswordResetCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_codes (id, user_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, code.ID, code.UserID, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetActiveResetCodes(ctx context.Context, userID string) ([]domain.PasswordResetCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, code_hash, expires_at, created_at
		FROM password_reset_codes
		WHERE user_id = $1 AND used_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reset codes: %w", err)
	}
	defer rows.Close()

	var codes []domain.PasswordResetCode
	for rows.Next() {
		var c domain.PasswordResetCode
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reset code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *PostgresRepository) ConsumeResetCode(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE password_reset_codes SET used_at = now() WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to consume reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrResetCodeInvalid
	}
	return nil
}
