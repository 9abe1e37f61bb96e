package service

import (
	"context"
	"fmt"
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

// IPResolver turns the request's remote address into the client's public IP.
// The zero netip.Addr with a nil error means the address is unknown. An error
// means the request address itself is malformed.
type IPResolver interface {
	Resolve(ctx context.Context, remoteIP string) (netip.Addr, error)
}

const invalidAttemptIP = "invalid"

type UserService struct {
	repo         domain.UserRepository
	tokenService TokenGenerator
	devices      *DeviceService
	ipResolver   IPResolver
	cfg          *config.Config
}

func NewUserService(repo domain.UserRepository, tokenService TokenGenerator, devices *DeviceService,
	ipResolver IPResolver, cfg *config.Config) *UserService {
	return &UserService{
		repo:         repo,
		tokenService: tokenService,
		devices:      devices,
		ipResolver:   ipResolver,
		cfg:          cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RoleOf reports the effective role of a user.
func (s *UserService) RoleOf(user *domain.User) string {
	return roleFor(user, s.cfg.OwnerEmail)
}

func (s *UserService) IsOwner(user *domain.User) bool {
	return isOwnerEmail(user.Email, s.cfg.OwnerEmail)
}

// The owner is the single account whose email matches the configured owner email.
func isOwnerEmail(email, ownerEmail string) bool {
	return ownerEmail != "" && strings.EqualFold(email, ownerEmail)
}

func roleFor(user *domain.User, ownerEmail string) string {
	switch {
	case isOwnerEmail(user.Email, ownerEmail):
		return constant.RoleOwner
	case user.IsAdmin:
		return constant.RoleAdmin
	default:
		return constant.RoleUser
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)
	if isOwnerEmail(email, s.cfg.OwnerEmail) {
		return nil, autherror.ErrOwnerEmailReserved
	}
	existingUser, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(input.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	email := normalizeEmail(input.Email)
	attemptIP := attemptKey(input.IPAddress)

	failed, err := s.repo.CountRecentFailedAttempts(ctx, email, attemptIP, s.cfg.LoginWindowMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to check login attempts: %w", err)
	}
	if s.cfg.LoginMaxAttempts > 0 && failed >= s.cfg.LoginMaxAttempts {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		if err := s.repo.RecordLoginAttempt(ctx, email, attemptIP, false); err != nil {
			log.Warnf("failed to record login attempt for %s: %v", email, err)
		}
		return nil, autherror.ErrInvalidCredentials
	}

	decision, err := s.authorizeClient(ctx, user.ID, input.IPAddress)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		return nil, autherror.ErrDeviceLimitReached
	}

	response, err := s.issueSession(ctx, user, input.Fingerprint, addrString(decision.IP), input.UserAgent)
	if err != nil {
		return nil, err
	}
	response.Devices = decision.Slots

	if err := s.repo.RecordLoginAttempt(ctx, email, attemptIP, true); err != nil {
		log.Warnf("failed to record login attempt for %s: %v", email, err)
	}
	s.pruneSessions(ctx, user.ID)

	return response, nil
}

// Refresh restores a persisted session. The current client IP is re-checked
// against the account's slots before the refresh token is rotated.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	token, err := s.repo.GetRefreshToken(ctx, input.RefreshToken)
	if err != nil || token == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	if token.Revoked {
		return nil, autherror.ErrRefreshTokenRevoked
	}

	if token.DeviceFingerprint != input.Fingerprint {
		return nil, autherror.ErrDeviceFingerprintMismatch
	}

	if time.Now().After(token.ExpiresAt) {
		return nil, autherror.ErrRefreshTokenExpired
	}

	user, err := s.repo.GetByIDWithRole(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for token refresh: %w", err)
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	decision, err := s.authorizeClient(ctx, user.ID, input.IPAddress)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		if err := s.repo.RevokeRefreshToken(ctx, token.ID); err != nil {
			log.Warnf("failed to revoke blocked session %s: %v", token.ID, err)
		}
		return nil, autherror.ErrDeviceLimitReached
	}

	if err := s.repo.RevokeRefreshToken(ctx, token.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke token: %w", err)
	}

	response, err := s.issueSession(ctx, user, input.Fingerprint, addrString(decision.IP), input.UserAgent)
	if err != nil {
		return nil, err
	}
	response.Devices = decision.Slots

	return response, nil
}

// attemptKey is the address login attempts are counted under. Every
// unparseable address shares one bucket.
func attemptKey(remoteIP string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(remoteIP))
	if err != nil {
		return invalidAttemptIP
	}
	return addr.Unmap().String()
}

// authorizeClient resolves the request address and runs the device-slot check.
// A malformed request address is denied outright.
func (s *UserService) authorizeClient(ctx context.Context, userID, remoteIP string) (Decision, error) {
	ip, err := s.ipResolver.Resolve(ctx, remoteIP)
	if err != nil {
		log.Warnf("device check denied for user %s: %v", userID, err)
		decision, err := s.devices.Deny(ctx, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to authorize device: %w", err)
		}
		return decision, nil
	}

	decision, err := s.devices.Authorize(ctx, userID, ip)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to authorize device: %w", err)
	}
	return decision, nil
}

func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	token, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if token == nil {
		return autherror.ErrRefreshTokenNotFound
	}
	return s.repo.RevokeRefreshToken(ctx, token.ID)
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.ProfileOutput, error) {
	user, err := s.repo.GetByIDWithRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	return s.toProfile(user), nil
}

// UpdateProfile changes the display name and, once per account, the email.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input dto.UpdateProfileInput) (*dto.ProfileOutput, error) {
	user, err := s.repo.GetByIDWithRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != user.Email {
			if s.IsOwner(user) {
				return nil, autherror.ErrForbidden
			}
			if isOwnerEmail(email, s.cfg.OwnerEmail) {
				return nil, autherror.ErrOwnerEmailReserved
			}
			if user.EmailChanged {
				return nil, autherror.ErrEmailAlreadyChanged
			}
			user.Email = email
			user.EmailChanged = true
		}
	}

	user.UpdatedAt = time.Now()
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return s.toProfile(user), nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// ResolveIP exposes the resolver to handlers that only need to mark the
// caller's address. A malformed address resolves to the zero netip.Addr.
func (s *UserService) ResolveIP(ctx context.Context, remoteIP string) netip.Addr {
	ip, err := s.ipResolver.Resolve(ctx, remoteIP)
	if err != nil {
		return netip.Addr{}
	}
	return ip
}

// EnsureOwner creates the owner account from OWNER_EMAIL and
// OWNER_PASSWORD_HASH when it does not exist yet. Register never accepts the
// owner email, so this is the only way the owner account comes into being.
func (s *UserService) EnsureOwner(ctx context.Context) error {
	email := normalizeEmail(s.cfg.OwnerEmail)
	if email == "" {
		return nil
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up owner account: %w", err)
	}
	if existing != nil {
		return nil
	}
	if s.cfg.OwnerPasswordHash == "" {
		log.Warnf("owner account %s does not exist and OWNER_PASSWORD_HASH is not set", email)
		return nil
	}
	if _, err := bcrypt.Cost([]byte(s.cfg.OwnerPasswordHash)); err != nil {
		return fmt.Errorf("invalid OWNER_PASSWORD_HASH: %w", err)
	}

	now := time.Now()
	owner := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: s.cfg.OwnerPasswordHash,
		Name:         "Owner",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, owner); err != nil {
		return fmt.Errorf("failed to create owner account: %w", err)
	}
	log.Infof("owner account %s created", email)
	return nil
}

func (s *UserService) issueSession(ctx context.Context, user *domain.User, fingerprint, ip, userAgent string) (*dto.TokenResponse, error) {
	accessToken, refreshToken, _, err := s.tokenService.Generate(user.ID, user.Email, s.RoleOf(user))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	now := time.Now()
	session := &domain.RefreshToken{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Token:             refreshToken,
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
		UserAgent:         userAgent,
		ExpiresAt:         now.Add(s.tokenService.GetRefreshTokenExpiry()),
		CreatedAt:         now,
		Revoked:           false,
	}
	if err := s.repo.StoreRefreshToken(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    constant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
	}, nil
}

func (s *UserService) pruneSessions(ctx context.Context, userID string) {
	if s.cfg.MaxActiveRefreshTokens <= 0 {
		return
	}
	count, err := s.repo.GetActiveCountByUserID(ctx, userID)
	if err != nil {
		log.Warnf("failed to count active sessions for user %s: %v", userID, err)
		return
	}
	if count > s.cfg.MaxActiveRefreshTokens {
		if err := s.repo.DeleteOldestByUserID(ctx, userID); err != nil {
			log.Warnf("failed to delete oldest refresh token for user %s: %v", userID, err)
		}
	}
}

func (s *UserService) toProfile(user *domain.User) *dto.ProfileOutput {
	isOwner := s.IsOwner(user)
	return &dto.ProfileOutput{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		EmailChanged: user.EmailChanged,
		IsOwner:      isOwner,
		IsAdmin:      isOwner || user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func addrString(ip netip.Addr) string {
	if !ip.IsValid() {
		return ""
	}
	return ip.Unmap().String()
}
