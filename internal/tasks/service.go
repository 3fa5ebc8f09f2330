package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/aikonstudios/aikon/internal/store"
)

const maxTitleLen = 200

var (
	ErrEmptyTitle = errors.New("tasks: title is empty")
	ErrNotFound   = store.ErrNotFound
)

// Service manages per-user task lists.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Create(ctx context.Context, userID, title string) (store.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Task{}, ErrEmptyTitle
	}
	if len(title) > maxTitleLen {
		title = strings.TrimSpace(title[:maxTitleLen])
	}
	return s.store.AddTask(ctx, store.Task{UserID: userID, Title: title})
}

func (s *Service) List(ctx context.Context, userID string) ([]store.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

func (s *Service) SetDone(ctx context.Context, userID, taskID string, done bool) error {
	return s.store.SetTaskDone(ctx, userID, taskID, done)
}

func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	return s.store.DeleteTask(ctx, userID, taskID)
}
