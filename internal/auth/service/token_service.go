package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/nuvemautoma/hot-class/internal/auth/service TokenGenerator

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

const (
	tokenIssuer = "hot-class"

	audienceAccess  = "hot-class:access"
	audienceRefresh = "hot-class:refresh"
)

type TokenGenerator interface {
	Generate(userID, email, role string) (string, string, time.Time, error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
}

// TokenService signs HS256 session tokens. Access and refresh tokens use
// separate secrets and audiences so neither can stand in for the other.
type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	now    func() time.Time
	parser *jwt.Parser
}

// JWTCustomClaims travel in the access token and end up in the request
// locals. Refresh tokens carry only UserID and a unique jti.
type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

func NewTokenService(accessSecret, refreshSecret string, accessMinutes, refreshMinutes int) *TokenService {
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenExpiry:  time.Duration(accessMinutes) * time.Minute,
		RefreshTokenExpiry: time.Duration(refreshMinutes) * time.Minute,
		now:                time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithAudience(audienceAccess),
			jwt.WithExpirationRequired(),
		),
	}
}

// Generate returns an access token, a refresh token and the access token's expiry.
func (ts *TokenService) Generate(userID, email, role string) (string, string, time.Time, error) {
	now := ts.now()
	accessExpiry := now.Add(ts.AccessTokenExpiry)

	accessToken, err := ts.sign(ts.AccessTokenSecret, JWTCustomClaims{
		UserID:           userID,
		Email:            email,
		Role:             role,
		RegisteredClaims: registered(userID, audienceAccess, now, accessExpiry),
	})
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := registered(userID, audienceRefresh, now, now.Add(ts.RefreshTokenExpiry))
	refresh.ID = uuid.NewString()
	refreshToken, err := ts.sign(ts.RefreshTokenSecret, JWTCustomClaims{
		UserID:           userID,
		RegisteredClaims: refresh,
	})
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return accessToken, refreshToken, accessExpiry, nil
}

func registered(subject, audience string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (ts *TokenService) sign(secret string, claims JWTCustomClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.RefreshTokenExpiry
}

// VerifyAccessToken accepts only HS256 access tokens issued by this service
// whose subject matches the user_id claim. Every failure wraps
// ErrInvalidAccessToken.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	_, err := ts.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(ts.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", autherror.ErrInvalidAccessToken, err)
	}
	if claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", autherror.ErrInvalidAccessToken)
	}
	return claims, nil
}
