package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// AuthorizedIPChannel is the NOTIFY channel fed by the authorized_ips trigger.
const AuthorizedIPChannel = "authorized_ips_changes"

// Executor is the subset of a pgx pool or connection needed to apply migrations.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email_changed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, role)
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		device_fingerprint TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_active ON refresh_tokens(user_id) WHERE revoked = FALSE`,

	`CREATE TABLE IF NOT EXISTS login_attempts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		attempt_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		successful BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_login_attempts_email_ip ON login_attempts(email, ip_address, attempt_time)`,

	`CREATE TABLE IF NOT EXISTS authorized_ips (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		ip_address VARCHAR(45) NOT NULL,
		is_extra_slot BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, ip_address)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_authorized_ips_user_created ON authorized_ips(user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS extra_slot_grants (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extra_slot_grants_user ON extra_slot_grants(user_id)`,

	`CREATE TABLE IF NOT EXISTS admin_action_logs (
		id UUID PRIMARY KEY,
		actor_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		target_user_id TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_admin_action_logs_created ON admin_action_logs(created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS password_reset_codes (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS groups (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS notification_reads (
		notification_id UUID NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		read_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (notification_id, user_id)
	)`,

	`CREATE OR REPLACE FUNCTION notify_authorized_ip_change() RETURNS trigger AS $$
	DECLARE
		rec authorized_ips;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			rec := OLD;
		ELSE
			rec := NEW;
		END IF;
		PERFORM pg_notify('` + AuthorizedIPChannel + `', json_build_object(
			'op', TG_OP,
			'id', rec.id,
			'user_id', rec.user_id,
			'ip_address', rec.ip_address,
			'is_extra_slot', rec.is_extra_slot,
			'created_at', rec.created_at
		)::text);
		RETURN rec;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS authorized_ips_notify ON authorized_ips`,
	`CREATE TRIGGER authorized_ips_notify
		AFTER INSERT OR DELETE ON authorized_ips
		FOR EACH ROW EXECUTE FUNCTION notify_authorized_ip_change()`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Executor) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
