package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"
	"atelier/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

const testJWTSecret = "test_jwt_secret"

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	mockRepo.On("Count", ctx).Return(int64(0), nil).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "admin@atelier.test" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("s3cret-pass")) == nil
	})).Return(nil).Once()

	require.NoError(t, authService.EnsureAdmin(ctx, " Admin@Atelier.test ", "s3cret-pass"))
	mockRepo.AssertExpectations(t)

	// An existing account is left alone
	mockRepo = new(MockUserRepository)
	authService = services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	mockRepo.On("Count", ctx).Return(int64(1), nil).Once()
	require.NoError(t, authService.EnsureAdmin(ctx, "admin@atelier.test", "s3cret-pass"))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// Missing credentials disable seeding
	mockRepo = new(MockUserRepository)
	authService = services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	require.NoError(t, authService.EnsureAdmin(ctx, "", ""))
	mockRepo.AssertNotCalled(t, "Count", mock.Anything)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		Base:     models.Base{ID: "user-123"},
		Email:    "admin@example.com",
		Password: string(hashedPassword),
	}

	// Successful login
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	token, err := authService.LoginUser(ctx, user.Email, "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.NotZero(t, claims.ExpiresAt)

	// Wrong password
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	_, err = authService.LoginUser(ctx, user.Email, "wrongpassword")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	// Unknown account gets the same answer
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, apperrors.NotFound("user", "nobody@example.com")).Once()
	_, err = authService.LoginUser(ctx, "nobody@example.com", "password123")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	// Storage failures are not reported as bad credentials
	mockRepo.On("GetByEmail", ctx, "down@example.com").Return(nil, errors.New("connection refused")).Once()
	_, err = authService.LoginUser(ctx, "down@example.com", "password123")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	mockRepo.AssertExpectations(t)
}

func sign(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret, time.Hour)

	valid := sign(t, testJWTSecret, jwt.MapClaims{
		"user_id": "user-123",
		"email":   "admin@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	claims, err := authService.ValidateToken(valid)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "invalid.token.string"},
		{"wrong secret", sign(t, "other", jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(time.Hour).Unix()})},
		{"expired", sign(t, testJWTSecret, jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"no expiry", sign(t, testJWTSecret, jwt.MapClaims{"user_id": "u"})},
		{"no user", sign(t, testJWTSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authService.ValidateToken(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
			assert.Contains(t, err.Error(), "invalid token")
		})
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)

	mockRepo.On("GetByID", ctx, "gone").Return(nil, apperrors.NotFound("user", "gone")).Once()
	_, err := authService.CurrentUser(ctx, &services.Claims{UserID: "gone"})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	mockRepo.AssertExpectations(t)
}
