package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/netip"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/nuvemautoma/hot-class/config"
	"github.com/nuvemautoma/hot-class/internal/auth/domain"
	"github.com/nuvemautoma/hot-class/internal/auth/dto"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/nuvemautoma/hot-class/pkg/constant"
	"golang.org/x/crypto/bcrypt"
)

const defaultActionLogLimit = 100

// AdminService backs the owner/admin panel.
type AdminService struct {
	users   domain.UserRepository
	admins  domain.AdminRepository
	devices *DeviceService
	cfg     *config.Config
	now     func() time.Time
}

func NewAdminService(users domain.UserRepository, admins domain.AdminRepository, devices *DeviceService, cfg *config.Config) *AdminService {
	return &AdminService{
		users:   users,
		admins:  admins,
		devices: devices,
		cfg:     cfg,
		now:     time.Now,
	}
}

func isPrivileged(actor *JWTCustomClaims) bool {
	return actor != nil && (actor.Role == constant.RoleOwner || actor.Role == constant.RoleAdmin)
}

func (s *AdminService) isOwner(user *domain.User) bool {
	return isOwnerEmail(user.Email, s.cfg.OwnerEmail)
}

func (s *AdminService) target(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByIDWithRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns every account, newest first, filtered by a case-insensitive
// match on name or email when query is set.
func (s *AdminService) ListUsers(ctx context.Context, query string) ([]dto.UserOutput, error) {
	users, err := s.admins.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]dto.UserOutput, 0, len(users))
	for i := range users {
		u := &users[i]
		if query != "" && !strings.Contains(strings.ToLower(u.Name), query) &&
			!strings.Contains(strings.ToLower(u.Email), query) {
			continue
		}
		out = append(out, dto.UserOutput{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      roleFor(u, s.cfg.OwnerEmail),
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}

// SetAdmin grants or revokes the admin role. Only the owner may do this and the
// owner's own role is fixed.
func (s *AdminService) SetAdmin(ctx context.Context, actor *JWTCustomClaims, targetID string, admin bool) error {
	if actor == nil || actor.Role != constant.RoleOwner {
		return autherror.ErrForbidden
	}

	user, err := s.target(ctx, targetID)
	if err != nil {
		return err
	}
	if s.isOwner(user) {
		return autherror.ErrOwnerRoleImmutable
	}

	if err := s.admins.SetAdmin(ctx, user.ID, admin); err != nil {
		return err
	}

	action := constant.ActionRevokeAdmin
	if admin {
		action = constant.ActionGrantAdmin
	}
	s.RecordAction(ctx, actor.UserID, action, user.ID, user.Email)
	return nil
}

// UpdateUserPassword sets another account's password. Admins cannot change the
// owner's password.
func (s *AdminService) UpdateUserPassword(ctx context.Context, actor *JWTCustomClaims, targetID, newPassword string) error {
	if !isPrivileged(actor) {
		return autherror.ErrForbidden
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.target(ctx, targetID)
	if err != nil {
		return err
	}
	if s.isOwner(user) && actor.Role != constant.RoleOwner {
		return autherror.ErrOwnerPasswordProtected
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.RecordAction(ctx, actor.UserID, constant.ActionUpdatePassword, user.ID, "")
	return nil
}

func (s *AdminService) GetUserSessions(ctx context.Context, targetID string) ([]dto.SessionOutput, error) {
	sessions, err := s.users.GetActiveSessionsByUserID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, rt := range sessions {
		out = append(out, dto.SessionOutput{
			ID:                rt.ID,
			DeviceFingerprint: rt.DeviceFingerprint,
			IPAddress:         rt.IPAddress,
			UserAgent:         rt.UserAgent,
			CreatedAt:         rt.CreatedAt,
			ExpiresAt:         rt.ExpiresAt,
		})
	}
	return out, nil
}

func (s *AdminService) ForceLogout(ctx context.Context, actor *JWTCustomClaims, targetID string) error {
	if err := s.users.RevokeAllRefreshTokensByUserID(ctx, targetID); err != nil {
		return err
	}
	s.RecordAction(ctx, actorID(actor), constant.ActionForceLogout, targetID, "")
	return nil
}

func (s *AdminService) ListUserDevices(ctx context.Context, targetID string) (*dto.DeviceListOutput, error) {
	return s.devices.ListDevices(ctx, targetID, netip.Addr{})
}

func (s *AdminService) RemoveUserDevice(ctx context.Context, actor *JWTCustomClaims, targetID, deviceID string) error {
	if err := s.devices.RemoveDevice(ctx, targetID, deviceID); err != nil {
		return err
	}
	s.RecordAction(ctx, actorID(actor), constant.ActionRemoveDevice, targetID, deviceID)
	return nil
}

func (s *AdminService) GrantExtraSlot(ctx context.Context, actor *JWTCustomClaims, targetID string) (*dto.SlotUsage, error) {
	if _, err := s.target(ctx, targetID); err != nil {
		return nil, err
	}
	usage, err := s.devices.GrantExtraSlot(ctx, targetID)
	if err != nil {
		return nil, err
	}
	s.RecordAction(ctx, actorID(actor), constant.ActionGrantExtraSlot, targetID, fmt.Sprintf("%d/%d", usage.Used, usage.Max))
	return usage, nil
}

// IssueResetCode creates a single-use six digit code that support hands to the user.
func (s *AdminService) IssueResetCode(ctx context.Context, actor *JWTCustomClaims, targetID string) (*dto.ResetCodeOutput, error) {
	user, err := s.target(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if s.isOwner(user) && (actor == nil || actor.Role != constant.RoleOwner) {
		return nil, autherror.ErrOwnerPasswordProtected
	}

	code, err := generateResetCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(s.cfg.ResetCodeTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Duration(config.DefaultResetCodeTTLMinutes) * time.Minute
	}
	now := s.now()
	if err := s.admins.CreateResetCode(ctx, &domain.PasswordResetCode{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	s.RecordAction(ctx, actorID(actor), constant.ActionIssueResetCode, user.ID, "")
	return &dto.ResetCodeOutput{Code: code, ExpiresIn: int(ttl.Seconds())}, nil
}

// ResetPassword redeems a reset code. Every failure looks the same to the caller.
func (s *AdminService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	if err := ValidatePassword(input.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrResetCodeInvalid
	}

	codes, err := s.admins.GetActiveResetCodes(ctx, user.ID)
	if err != nil {
		return err
	}

	var matched *domain.PasswordResetCode
	for i := range codes {
		if bcrypt.CompareHashAndPassword([]byte(codes[i].CodeHash), []byte(input.Code)) == nil {
			matched = &codes[i]
			break
		}
	}
	if matched == nil {
		return autherror.ErrResetCodeInvalid
	}

	if err := s.admins.ConsumeResetCode(ctx, matched.ID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	if err := s.users.RevokeAllRefreshTokensByUserID(ctx, user.ID); err != nil {
		log.Warnf("failed to revoke sessions after password reset for user %s: %v", user.ID, err)
	}
	return nil
}

func (s *AdminService) ListActions(ctx context.Context, limit int) ([]dto.AdminActionOutput, error) {
	if limit <= 0 || limit > defaultActionLogLimit {
		limit = defaultActionLogLimit
	}
	entries, err := s.admins.ListActions(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AdminActionOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AdminActionOutput{
			ID:           e.ID,
			ActorID:      e.ActorID,
			Action:       e.Action,
			TargetUserID: e.TargetUserID,
			Details:      e.Details,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out, nil
}

// RecordAction appends to the admin audit log. Failures are logged, never returned.
func (s *AdminService) RecordAction(ctx context.Context, actorID, action, targetUserID, details string) {
	entry := &domain.AdminActionLog{
		ID:           uuid.NewString(),
		ActorID:      actorID,
		Action:       action,
		TargetUserID: targetUserID,
		Details:      details,
		CreatedAt:    s.now(),
	}
	if err := s.admins.RecordAction(ctx, entry); err != nil {
		log.Warnf("failed to record admin action %s by %s: %v", action, actorID, err)
	}
}

func actorID(actor *JWTCustomClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
