package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizforge-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// UserStore abstracts how accounts are persisted (Postgres, SQLite, memory).
type UserStore interface {
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// TokenDenylist tracks signed-out token IDs until their natural expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, until time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims is the JWT payload issued on sign-in/sign-up.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Service implements the identity provider contract: sign-up, sign-in,
// sign-out, verify. Quiz session logic never depends on it.
type Service struct {
	users  UserStore
	denied TokenDenylist
	hmac   []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(users UserStore, denied TokenDenylist, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &Service{users: users, denied: denied, hmac: []byte(secret), ttl: tokenTTL, now: time.Now}
}

// NewServiceWithClock is test-only for deterministic issue/expiry times.
func NewServiceWithClock(users UserStore, denied TokenDenylist, secret string, tokenTTL time.Duration, now func() time.Time) *Service {
	s := NewService(users, denied, secret, tokenTTL)
	s.now = now
	return s
}

// SignUp registers an account and returns a signed token for it.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (string, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || !strings.Contains(email, "@") {
		return "", domain.User{}, fmt.Errorf("%w: valid email required", domain.ErrInvalidCredentials)
	}
	if len(password) < 8 {
		return "", domain.User{}, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidCredentials)
	}
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", domain.User{}, err
	}

	token, err := s.issue(user)
	return token, user, err
}

// SignIn verifies credentials and returns a signed token. Any mismatch,
// including an unknown email, reports the same error.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}

	token, err := s.issue(user)
	return token, user, err
}

// SignOut denylists the token for its remaining lifetime.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	return s.denied.Revoke(ctx, claims.ID, remaining)
}

// Verify checks signature, expiry and the denylist.
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denied.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) issue(user domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		Name: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quizforge",
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.hmac)
}

func (s *Service) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.hmac, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	return claims, nil
}
