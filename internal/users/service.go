package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidEmail indicates an unusable email address.
	ErrInvalidEmail = errors.New("users: invalid email")
)

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service resolves portal accounts for request handlers and the
// moderation pipeline.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: %w", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("users service error",
			zap.String("operation", "users.get"),
			zap.String("user_id", userID),
			zap.Error(err))
		return User{}, err
	}
	return user, nil
}

// Create inserts a new account. Email uniqueness is enforced by the
// database index.
func (s *Service) Create(ctx context.Context, user User) (User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return User{}, ErrInvalidEmail
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Error("users service error",
			zap.String("operation", "users.create"),
			zap.String("email", user.Email),
			zap.Error(err))
		return User{}, err
	}
	return user, nil
}
