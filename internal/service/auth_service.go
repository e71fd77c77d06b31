package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Marga-Ghale/ora-collab-backend/internal/config"
	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// ============================================
// Auth Service
// ============================================

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*repository.User, string, error)
	Login(ctx context.Context, email, password string) (*repository.User, string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (Identity, error)
	Me(ctx context.Context, ident Identity) (*repository.User, error)
	ChangePassword(ctx context.Context, ident Identity, currentPassword, newPassword string) error
}

// TokenStore remembers logged-out token ids until they would have expired anyway.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims carried by every access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	tokens   TokenStore
}

func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, tokens TokenStore) AuthService {
	return &authService{cfg: cfg, userRepo: userRepo, tokens: tokens}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*repository.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, "", apperrors.Validation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > types.MaxNameLength {
		return nil, "", apperrors.Validation("name", "name must be at most 100 characters")
	}
	if email == "" {
		return nil, "", apperrors.Validation("email", "email is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, "", apperrors.Validation("password", "password must be at least 6 characters")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", storeErr("find user", err)
	}
	if existing != nil {
		return nil, "", apperrors.ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	// The first account on a fresh install administers it.
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, "", storeErr("count users", err)
	}
	role := types.UserRoleMember
	if count == 0 {
		role = types.UserRoleAdmin
	}

	user := &repository.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperrors.ErrEmailTaken
		}
		return nil, "", storeErr("create user", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login never distinguishes an unknown email from a wrong password.
func (s *authService) Login(ctx context.Context, email, password string) (*repository.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", storeErr("find user", err)
	}
	if user == nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return apperrors.ErrUnauthenticated
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		return storeErr("revoke session", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Identity{}, apperrors.ErrUnauthenticated
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Identity{}, storeErr("check session", err)
	}
	if revoked {
		return Identity{}, apperrors.ErrUnauthenticated
	}
	return Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

func (s *authService) Me(ctx context.Context, ident Identity) (*repository.User, error) {
	user, err := s.userRepo.FindByID(ctx, ident.UserID)
	if err != nil {
		return nil, storeErr("find user", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, ident Identity, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.Validation("currentPassword", "current password is required")
	}
	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return apperrors.Validation("newPassword", "password must be at least 6 characters")
	}
	if currentPassword == newPassword {
		return apperrors.ErrPasswordUnchanged
	}

	user, err := s.Me(ctx, ident)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return storeErr("update password", s.userRepo.UpdatePassword(ctx, user.ID, string(hashed)))
}

func (s *authService) issueToken(user *repository.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(s.cfg.JWTExpiry))),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("token missing subject or id")
	}
	return claims, nil
}

// memoryTokenStore is the revocation list used when Redis is not configured.
type memoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{revoked: make(map[string]time.Time)}
}

func (m *memoryTokenStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, until := range m.revoked {
		if now.After(until) {
			delete(m.revoked, id)
		}
	}
	m.revoked[jti] = now.Add(ttl)
	return nil
}

func (m *memoryTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[jti]
	return ok && time.Now().Before(until), nil
}
