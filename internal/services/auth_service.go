package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"
	"atelier/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the identity carried by an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService. Tokens expire after ttl.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// EnsureAdmin seeds the admin account when no user exists yet. It does
// nothing if either credential is empty or a user is already stored.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	user := &models.User{Email: email, Password: password}
	if err := validateStruct(user); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	zap.L().Info("admin account seeded", zap.String("email", email))
	return nil
}

// LoginUser authenticates the admin and returns a signed token.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", apperrors.InvalidCredentials()
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", apperrors.InvalidCredentials()
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and expiry of a token. Tokens without
// an exp claim are rejected.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token: " + err.Error())
	}
	if !token.Valid || !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.UserID == "" {
		return nil, apperrors.Unauthorized("invalid token: missing user")
	}
	return claims, nil
}

// CurrentUser returns the stored account a token was issued for.
func (s *AuthService) CurrentUser(ctx context.Context, claims *Claims) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, err
	}
	return user, nil
}
