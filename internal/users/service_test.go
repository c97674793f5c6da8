package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:archivara_users_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct users service: %v", err)
	}
	return service
}

func TestCreateNormalizesEmail(t *testing.T) {
	service := newTestService(t)

	created, err := service.Create(context.Background(), User{ID: "u-1", Email: "  Alice@MIT.EDU "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Email != "alice@mit.edu" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}

	loaded, err := service.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Email != "alice@mit.edu" {
		t.Fatalf("expected persisted email, got %q", loaded.Email)
	}
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Create(context.Background(), User{ID: "u-1", Email: "not-an-email"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email error, got %v", err)
	}
}

func TestGetUnknownUser(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Get(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
