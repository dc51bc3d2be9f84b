package todo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bjaus/routekit"
)

// MemoryRepository is a Repository backed by a map. Items are listed in
// creation order and titles are unique, compared case-sensitively.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Todo
	order []string

	now   func() time.Time
	newID func() string
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryRepository) {
		m.now = now
	}
}

// WithIDGenerator overrides the id generator.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(m *MemoryRepository) {
		m.newID = fn
	}
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	m := &MemoryRepository{
		items: make(map[string]Todo),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Repository = (*MemoryRepository)(nil)

// List returns matching items in creation order.
func (m *MemoryRepository) List(_ context.Context, f Filter) ([]Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Todo, 0, len(m.order))
	for _, id := range m.order {
		t := m.items[id]
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		out = append(out, t)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Get returns the item with id.
func (m *MemoryRepository) Get(_ context.Context, id string) (Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.items[id]
	if !ok {
		return Todo{}, notFound(id)
	}
	return t, nil
}

// Create stores a new item.
func (m *MemoryRepository) Create(_ context.Context, title string, completed bool) (Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.titleTaken(title, "") {
		return Todo{}, conflict(title)
	}

	now := m.now().UTC()
	t := Todo{
		ID:        m.newID(),
		Title:     title,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.items[t.ID] = t
	m.order = append(m.order, t.ID)
	return t, nil
}

// Update applies p to the item with id.
func (m *MemoryRepository) Update(_ context.Context, id string, p Patch) (Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.items[id]
	if !ok {
		return Todo{}, notFound(id)
	}
	if p.Title != nil {
		if m.titleTaken(*p.Title, id) {
			return Todo{}, conflict(*p.Title)
		}
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.UpdatedAt = m.now().UTC()
	m.items[id] = t
	return t, nil
}

// Delete removes the item with id.
func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return notFound(id)
	}
	delete(m.items, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored items.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryRepository) titleTaken(title, except string) bool {
	for id, t := range m.items {
		if id != except && t.Title == title {
			return true
		}
	}
	return false
}

func notFound(id string) error {
	return routekit.NotFoundf("todo %s not found", id)
}

func conflict(title string) error {
	return routekit.Conflictf("todo with title %q already exists", title)
}
