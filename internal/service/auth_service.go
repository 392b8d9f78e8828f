package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const minPasswordLength = 6

// Claims is the bearer token payload.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

type AuthService struct {
	users  interfaces.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users interfaces.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func hashPassword(s string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	return string(b), err
}

func comparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

func (s *AuthService) issue(u *models.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Register creates a user. New accounts default to USER.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if len(in.Password) < minPasswordLength {
		return nil, "", apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, "", apperror.Validation("invalid role", nil)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, "", apperror.Conflict("USER_EXISTS", "User already exists")
		}
		return nil, "", err
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	telemetry.Logger.Info("User registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, "", apperror.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, "", err
	}
	if !u.IsActive || comparePassword(u.PasswordHash, password) != nil {
		return nil, "", apperror.Unauthorized("Invalid credentials")
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Authenticate parses a bearer token into the request actor.
func (s *AuthService) Authenticate(token string) (models.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return models.Actor{}, apperror.Unauthorized("Invalid or expired token")
	}
	return models.Actor{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound("User")
	}
	return u, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, name, email *string) (*models.User, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*email))
	}
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, apperror.Conflict("USER_EXISTS", "Email already in use")
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if comparePassword(u.PasswordHash, current) != nil {
		return apperror.BadRequest("INVALID_PASSWORD", "Current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}
