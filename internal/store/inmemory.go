package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]MessageRecord
	profiles map[string]Profile
	personas map[string][]CustomPersona
	tasks    map[string][]Task
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages: make(map[string][]MessageRecord),
		profiles: make(map[string]Profile),
		personas: make(map[string][]CustomPersona),
		tasks:    make(map[string][]Task),
	}
}

func (s *InMemoryStore) SaveMessage(_ context.Context, record MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.messages[record.UserID] = append(s.messages[record.UserID], record)
	return nil
}

func (s *InMemoryStore) RecentMessages(_ context.Context, userID string, limit int) ([]MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.messages[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]MessageRecord, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) GetProfile(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{UserID: userID}, nil
	}
	return p, nil
}

func (s *InMemoryStore) PutProfile(_ context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.UpdatedAt = time.Now().UTC()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *InMemoryStore) ListPersonas(_ context.Context, userID string) ([]CustomPersona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.personas[userID]
	out := make([]CustomPersona, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) AddPersona(_ context.Context, persona CustomPersona) (CustomPersona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if persona.ID == "" {
		persona.ID = uuid.NewString()
	}
	if persona.CreatedAt.IsZero() {
		persona.CreatedAt = time.Now().UTC()
	}
	s.personas[persona.UserID] = append(s.personas[persona.UserID], persona)
	return persona, nil
}

func (s *InMemoryStore) DeletePersona(_ context.Context, userID, personaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.personas[userID]
	for i, p := range arr {
		if p.ID == personaID {
			s.personas[userID] = append(arr[:i], arr[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) ListTasks(_ context.Context, userID string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.tasks[userID]
	out := make([]Task, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) AddTask(_ context.Context, task Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	s.tasks[task.UserID] = append(s.tasks[task.UserID], task)
	return task, nil
}

func (s *InMemoryStore) SetTaskDone(_ context.Context, userID, taskID string, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.tasks[userID]
	for i := range arr {
		if arr[i].ID == taskID {
			arr[i].Done = done
			arr[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) DeleteTask(_ context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.tasks[userID]
	for i, t := range arr {
		if t.ID == taskID {
			s.tasks[userID] = append(arr[:i], arr[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) Ping(_ context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }
