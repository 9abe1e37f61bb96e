package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nuvemautoma/hot-class/db"
	"github.com/nuvemautoma/hot-class/internal/auth/domain"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

// PostgresRepository implements domain.UserRepository, domain.DeviceRepository
// and domain.AdminRepository.
type PostgresRepository struct {
	db db.DBTX
}

func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const selectUserColumns = `
	SELECT u.id, u.email, u.password_hash, u.name, u.email_changed,
		EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = u.id AND r.role = 'admin') AS is_admin,
		u.created_at, u.updated_at
	FROM users u
`

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserColumns+`WHERE u.email = $1 LIMIT 1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByIDWithRole(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserColumns+`WHERE u.id = $1 LIMIT 1`, id)
	user, err := scanUser(row)
	if err != nil {
		if db.IsMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.EmailChanged,
		&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, email_changed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.PasswordHash, user.Name, user.EmailChanged, user.CreatedAt, user.UpdatedAt)
	if db.HasCode(err, db.UniqueViolation) {
		return autherror.ErrEmailAlreadyInUse
	}
	return err
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, email_changed = $4, updated_at = $5
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.EmailChanged, user.UpdatedAt)
	if err != nil {
		if db.HasCode(err, db.UniqueViolation) {
			return autherror.ErrEmailAlreadyInUse
		}
		if db.IsMalformedID(err) {
			return autherror.ErrUserNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, passwordHash)
	if err != nil {
		if db.IsMalformedID(err) {
			return autherror.ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, user_id, token, device_fingerprint, ip_address, user_agent, expires_at, created_at, revoked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		rt.ID, rt.UserID, rt.Token, rt.DeviceFingerprint, rt.IPAddress,
		rt.UserAgent, rt.ExpiresAt, rt.CreatedAt, rt.Revoked)
	return err
}

const selectRefreshTokenColumns = `
	SELECT id, user_id, token, device_fingerprint, ip_address, user_agent, expires_at, created_at, revoked
	FROM refresh_tokens
`

func (r *PostgresRepository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx, selectRefreshTokenColumns+`WHERE token = $1 LIMIT 1`, token)

	var rt domain.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.DeviceFingerprint, &rt.IPAddress,
		&rt.UserAgent, &rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) RevokeAllRefreshTokensByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID)
	if db.IsMalformedID(err) {
		return nil
	}
	return err
}

func (r *PostgresRepository) GetActiveSessionsByUserID(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.Query(ctx, selectRefreshTokenColumns+`
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()
		ORDER BY created_at DESC`, userID)
	if err != nil {
		if db.IsMalformedID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.RefreshToken
	for rows.Next() {
		var rt domain.RefreshToken
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.DeviceFingerprint, &rt.IPAddress,
			&rt.UserAgent, &rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, rt)
	}
	if err := rows.Err(); err != nil {
		if db.IsMalformedID(err) {
			return nil, nil
		}
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) GetActiveCountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active tokens: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) DeleteOldestByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE id = (
			SELECT id FROM refresh_tokens
			WHERE user_id = $1 AND revoked = FALSE
			ORDER BY created_at ASC
			LIMIT 1
		)
	`, userID)
	return err
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, now(), $3)
	`, email, ip, success)
	return err
}

func (r *PostgresRepository) CountRecentFailedAttempts(ctx context.Context, email, ip string, minutes int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND ip_address = $2 AND successful = FALSE
		  AND attempt_time > now() - make_interval(mins => $3)
	`, email, ip, minutes).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
