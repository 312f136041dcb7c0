package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/munstack/conference-backend/internal/domain"
	"github.com/munstack/conference-backend/internal/repo"
)

// chairTokenTTL bounds how long a chair session stays valid.
const chairTokenTTL = 24 * time.Hour

// ChairClaims is the JWT payload issued to an authenticated chair.
type ChairClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService authenticates delegates (by identity pair) and chairs (by
// password, yielding a signed token).
type AuthService struct {
	DB     *gorm.DB
	Secret []byte
}

func NewAuthService(db *gorm.DB, secret []byte) *AuthService {
	return &AuthService{DB: db, Secret: secret}
}

// LoginDelegate resolves the (name, country) identity pair. There is no
// password; delegate identity is conference-issued.
func (s *AuthService) LoginDelegate(ctx context.Context, name, country string) (*domain.Delegate, error) {
	d, err := repo.GetDelegateByIdentity(ctx, s.DB, name, country)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return d, nil
}

// LoginChair verifies the chair's password and returns a signed HS256 token
// valid for 24 hours. Unknown usernames and bad passwords are
// indistinguishable to the caller.
func (s *AuthService) LoginChair(ctx context.Context, username, password string) (string, error) {
	chair, err := repo.GetChairByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(chair.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := ChairClaims{
		Username: chair.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   chair.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(chairTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// VerifyChairToken parses and validates a chair token, returning its claims.
func (s *AuthService) VerifyChairToken(tokenString string) (*ChairClaims, error) {
	claims := &ChairClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
