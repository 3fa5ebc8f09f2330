package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists user state in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			tool_result_json TEXT NOT NULL DEFAULT '',
			pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			about_you TEXT NOT NULL DEFAULT '',
			custom_instructions TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS custom_personas (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			instruction TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_custom_personas_user ON custom_personas (user_id);`,
		`CREATE TABLE IF NOT EXISTS user_tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			done BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_user_tasks_user ON user_tasks (user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, record MessageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, user_id, session_id, sender, text, tool_result_json, pii_redacted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID,
		record.UserID,
		record.SessionID,
		record.Sender,
		record.Text,
		record.ToolResultJSON,
		record.PIIRedacted,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentMessages(ctx context.Context, userID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, session_id, sender, text, tool_result_json, pii_redacted, created_at
		 FROM chat_messages WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	items := make([]MessageRecord, 0, limit)
	for rows.Next() {
		var r MessageRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.Sender, &r.Text, &r.ToolResultJSON, &r.PIIRedacted, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, about_you, custom_instructions, updated_at FROM user_profiles WHERE user_id=$1`,
		userID,
	).Scan(&p.UserID, &p.AboutYou, &p.CustomInstructions, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{UserID: userID}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) PutProfile(ctx context.Context, profile Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_profiles (user_id, about_you, custom_instructions, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id) DO UPDATE SET
			about_you = EXCLUDED.about_you,
			custom_instructions = EXCLUDED.custom_instructions,
			updated_at = now()`,
		profile.UserID,
		profile.AboutYou,
		profile.CustomInstructions,
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPersonas(ctx context.Context, userID string) ([]CustomPersona, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, icon, description, instruction, created_at
		 FROM custom_personas WHERE user_id=$1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query personas: %w", err)
	}
	defer rows.Close()

	var items []CustomPersona
	for rows.Next() {
		var p CustomPersona
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Icon, &p.Description, &p.Instruction, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan persona row: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) AddPersona(ctx context.Context, persona CustomPersona) (CustomPersona, error) {
	if persona.ID == "" {
		persona.ID = uuid.NewString()
	}
	if persona.CreatedAt.IsZero() {
		persona.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO custom_personas (id, user_id, name, icon, description, instruction, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		persona.ID, persona.UserID, persona.Name, persona.Icon, persona.Description, persona.Instruction, persona.CreatedAt,
	)
	if err != nil {
		return CustomPersona{}, fmt.Errorf("add persona: %w", err)
	}
	return persona, nil
}

func (s *PostgresStore) DeletePersona(ctx context.Context, userID, personaID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM custom_personas WHERE user_id=$1 AND id=$2`, userID, personaID)
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, done, created_at, updated_at
		 FROM user_tasks WHERE user_id=$1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *PostgresStore) AddTask(ctx context.Context, task Task) (Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_tasks (id, user_id, title, done, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		task.ID, task.UserID, task.Title, task.Done, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return Task{}, fmt.Errorf("add task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) SetTaskDone(ctx context.Context, userID, taskID string, done bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_tasks SET done=$3, updated_at=now() WHERE user_id=$1 AND id=$2`,
		userID, taskID, done,
	)
	if err != nil {
		return fmt.Errorf("set task done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_tasks WHERE user_id=$1 AND id=$2`, userID, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
