// Package handler defines the HTTP handlers.
package handler

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/davitm/taskboard/internal/middleware"
	"github.com/davitm/taskboard/internal/model"
	"github.com/davitm/taskboard/internal/queue"
)

// UserStore is the credential store surface the auth handler needs.
// *repository.UserRepo satisfies it; tests substitute an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLastLogin(ctx context.Context, id uint64) error
}

// TaskStore is the task store surface the task handler needs.
// *repository.TaskRepo satisfies it.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) error
	GetByID(ctx context.Context, id uint64) (*model.Task, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id uint64) error
}

// ActivityPublisher emits task activity events. A nil publisher
// disables event emission.
type ActivityPublisher interface {
	PublishTaskActivity(ctx context.Context, ev queue.TaskActivityEvent) error
}

// getUserID extracts the authenticated user id the JWT guard stored in
// the context.
func getUserID(c echo.Context) (uint64, error) {
	if uid, ok := c.Get(middleware.UserIDKey).(uint64); ok && uid != 0 {
		return uid, nil
	}
	return 0, errors.New("no user_id in context")
}
