package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

const (
	tokenIssuer     = "taskmarket"
	accessAudience  = "taskmarket-api"
	refreshAudience = "taskmarket-refresh"
	tokenLeeway     = 5 * time.Second
)

// TokenPair пара токенов, которую получает клиент.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// accessClaims роль попадает в access токен, чтобы middleware не ходил в базу.
type accessClaims struct {
	Role valueobject.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT. Access и refresh подписываются
// разными секретами и различаются audience.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// GeneratePair выпускает пару токенов и возвращает срок жизни refresh токена для сессии.
func (m *TokenManager) GeneratePair(user *models.User) (*TokenPair, time.Time, error) {
	now := m.now()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role:             user.Role,
		RegisteredClaims: m.registered(user.ID, accessAudience, now, accessExp),
	})
	accessToken, err := access.SignedString(m.accessSecret)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("token: подпись access: %w", err)
	}

	// jti делает каждый refresh токен уникальным, по нему ищется сессия.
	refreshClaims := m.registered(user.ID, refreshAudience, now, refreshExp)
	refreshClaims.ID = uuid.NewString()
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(m.refreshSecret)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("token: подпись refresh: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
		ExpiresAt:    accessExp,
	}, refreshExp, nil
}

func (m *TokenManager) registered(userID uuid.UUID, audience string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (m *TokenManager) parserOptions(audience string) []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(m.now),
	}
}

// ParseRefresh проверяет refresh токен и возвращает клеймы.
func (m *TokenManager) ParseRefresh(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.refreshSecret, nil
	}, m.parserOptions(refreshAudience)...)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ParseAccess извлекает userID и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}, m.parserOptions(accessAudience)...)
	if err != nil {
		return uuid.Nil, "", err
	}

	if !claims.Role.IsValid() {
		return uuid.Nil, "", errors.Join(jwt.ErrTokenInvalidClaims, fmt.Errorf("token: неизвестная роль %q", claims.Role))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", errors.Join(jwt.ErrTokenInvalidClaims, err)
	}
	return userID, string(claims.Role), nil
}
