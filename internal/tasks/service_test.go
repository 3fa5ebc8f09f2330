package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aikonstudios/aikon/internal/store"
)

func TestCreateAndList(t *testing.T) {
	s := NewService(store.NewInMemoryStore())
	ctx := context.Background()

	task, err := s.Create(ctx, "u1", "  buy paint  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.Title != "buy paint" || task.ID == "" || task.Done {
		t.Fatalf("task = %+v", task)
	}

	list, err := s.List(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, err = %v", list, err)
	}
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	s := NewService(store.NewInMemoryStore())
	if _, err := s.Create(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("error = %v, want ErrEmptyTitle", err)
	}
}

func TestCreateTruncatesLongTitle(t *testing.T) {
	s := NewService(store.NewInMemoryStore())
	task, err := s.Create(context.Background(), "u1", strings.Repeat("x", 500))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(task.Title) != maxTitleLen {
		t.Fatalf("len(Title) = %d, want %d", len(task.Title), maxTitleLen)
	}
}

func TestSetDoneAndDelete(t *testing.T) {
	s := NewService(store.NewInMemoryStore())
	ctx := context.Background()

	task, err := s.Create(ctx, "u1", "sketch storyboard")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.SetDone(ctx, "u1", task.ID, true); err != nil {
		t.Fatalf("SetDone() error = %v", err)
	}
	list, _ := s.List(ctx, "u1")
	if !list[0].Done {
		t.Fatalf("task not marked done: %+v", list[0])
	}

	if err := s.SetDone(ctx, "u1", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetDone(missing) error = %v", err)
	}

	if err := s.Delete(ctx, "u1", task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "u1", task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() error = %v", err)
	}
}
