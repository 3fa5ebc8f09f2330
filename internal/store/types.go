package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// MessageRecord stores a single user or assistant chat message.
type MessageRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	ToolResultJSON string    `json:"tool_result_json,omitempty"`
	PIIRedacted    bool      `json:"pii_redacted"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the per-user blob the assistant shapes its prompts with.
type Profile struct {
	UserID             string    `json:"user_id"`
	AboutYou           string    `json:"about_you"`
	CustomInstructions string    `json:"custom_instructions"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CustomPersona is a user-owned system-instruction template. Immutable once
// created; deletion is the only mutation.
type CustomPersona struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon,omitempty"`
	Description string    `json:"description,omitempty"`
	Instruction string    `json:"instruction"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is one entry in the user's task list.
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists per-user state: chat history, profile, custom personas and
// tasks.
type Store interface {
	SaveMessage(ctx context.Context, record MessageRecord) error
	RecentMessages(ctx context.Context, userID string, limit int) ([]MessageRecord, error)

	GetProfile(ctx context.Context, userID string) (Profile, error)
	PutProfile(ctx context.Context, profile Profile) error

	ListPersonas(ctx context.Context, userID string) ([]CustomPersona, error)
	AddPersona(ctx context.Context, persona CustomPersona) (CustomPersona, error)
	DeletePersona(ctx context.Context, userID, personaID string) error

	ListTasks(ctx context.Context, userID string) ([]Task, error)
	AddTask(ctx context.Context, task Task) (Task, error)
	SetTaskDone(ctx context.Context, userID, taskID string, done bool) error
	DeleteTask(ctx context.Context, userID, taskID string) error

	Ping(ctx context.Context) error
	Close() error
}
