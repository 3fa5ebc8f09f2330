package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aikonstudios/aikon/internal/store"
)

// Persona is a named system-instruction template. Built-in personas are
// immutable; custom personas are user-owned records in the store.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Instruction string `json:"instruction"`
	IsCustom    bool   `json:"is_custom"`
}

const DefaultID = "aikon"

var ErrNotFound = errors.New("persona not found")

// Registry resolves built-in and user-created personas. Selection is a pure
// read; built-ins never change after construction.
type Registry struct {
	store   store.Store
	builtin map[string]Persona
	order   []string
}

func NewRegistry(st store.Store) *Registry {
	builtins := []Persona{
		{
			ID:          "aikon",
			Name:        "Aikon",
			Icon:        "sparkles",
			Description: "The default studio assistant: helpful, upbeat, hands-on.",
			Instruction: "You are Aikon, a creative studio assistant. Be warm and direct, offer to generate images, websites or storyboards when it helps, and keep answers focused.",
		},
		{
			ID:          "producer",
			Name:        "Producer",
			Icon:        "clapperboard",
			Description: "Project-minded: plans, schedules, next steps.",
			Instruction: "You are a seasoned creative producer. Break work into concrete steps, surface deadlines and blockers, and keep responses structured and actionable.",
		},
		{
			ID:          "mentor",
			Name:        "Mentor",
			Icon:        "graduation-cap",
			Description: "Patient explainer for learning new tools and craft.",
			Instruction: "You are a patient mentor. Explain concepts from first principles, use short examples, and check understanding before moving on.",
		},
		{
			ID:          "concise",
			Name:        "Concise",
			Icon:        "zap",
			Description: "Brief, high-signal, no filler.",
			Instruction: "Answer with the minimum words that fully resolve the request. No preamble, no recap.",
		},
	}

	m := make(map[string]Persona, len(builtins))
	order := make([]string, 0, len(builtins))
	for _, p := range builtins {
		m[p.ID] = p
		order = append(order, p.ID)
	}
	return &Registry{store: st, builtin: m, order: order}
}

func (r *Registry) Default() Persona {
	return r.builtin[DefaultID]
}

// Resolve returns the persona for the given id, checking built-ins first and
// the user's custom personas second. An unknown id falls back to the default
// rather than failing the turn.
func (r *Registry) Resolve(ctx context.Context, userID, personaID string) Persona {
	personaID = strings.TrimSpace(personaID)
	if personaID == "" {
		return r.Default()
	}
	if p, ok := r.builtin[personaID]; ok {
		return p
	}
	if r.store != nil {
		customs, err := r.store.ListPersonas(ctx, userID)
		if err == nil {
			for _, c := range customs {
				if c.ID == personaID {
					return fromRecord(c)
				}
			}
		}
	}
	return r.Default()
}

// List returns built-ins in fixed order followed by the user's custom
// personas in creation order.
func (r *Registry) List(ctx context.Context, userID string) ([]Persona, error) {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.builtin[id])
	}
	if r.store == nil {
		return out, nil
	}
	customs, err := r.store.ListPersonas(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom personas: %w", err)
	}
	for _, c := range customs {
		out = append(out, fromRecord(c))
	}
	return out, nil
}

func (r *Registry) CreateCustom(ctx context.Context, userID string, p Persona) (Persona, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Persona{}, errors.New("persona name is required")
	}
	if strings.TrimSpace(p.Instruction) == "" {
		return Persona{}, errors.New("persona instruction is required")
	}
	rec, err := r.store.AddPersona(ctx, store.CustomPersona{
		UserID:      userID,
		Name:        strings.TrimSpace(p.Name),
		Icon:        strings.TrimSpace(p.Icon),
		Description: strings.TrimSpace(p.Description),
		Instruction: strings.TrimSpace(p.Instruction),
	})
	if err != nil {
		return Persona{}, fmt.Errorf("create custom persona: %w", err)
	}
	return fromRecord(rec), nil
}

func (r *Registry) DeleteCustom(ctx context.Context, userID, personaID string) error {
	if _, ok := r.builtin[personaID]; ok {
		return errors.New("built-in personas cannot be deleted")
	}
	err := r.store.DeletePersona(ctx, userID, personaID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func fromRecord(c store.CustomPersona) Persona {
	return Persona{
		ID:          c.ID,
		Name:        c.Name,
		Icon:        c.Icon,
		Description: c.Description,
		Instruction: c.Instruction,
		IsCustom:    true,
	}
}
