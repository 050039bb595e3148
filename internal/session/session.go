package session

import (
	"context"
	"sync"
	"time"
)

// Choice — эфемерный выбор пользователя "новая проблема / связана со старым
// тикетом". RelateTicketID == 0 означает "новая проблема".
type Choice struct {
	RelateTicketID uint64 `json:"relate_ticket_id"`
}

// ChoiceStore — короткоживущее состояние сессии по пользователю с TTL,
// чтобы брошенный выбор не жил вечно. Не является данными тикета.
type ChoiceStore interface {
	Put(ctx context.Context, userID int64, c Choice) error
	// Get возвращает nil без ошибки, если решение не записано или истекло.
	Get(ctx context.Context, userID int64) (*Choice, error)
	Delete(ctx context.Context, userID int64) error
}

type memoryEntry struct {
	choice    Choice
	expiresAt time.Time
}

// MemoryStore — in-process реализация ChoiceStore. Используется в тестах и
// в развёртываниях без Redis.
type MemoryStore struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[int64]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[int64]memoryEntry),
	}
}

func (m *MemoryStore) Put(_ context.Context, userID int64, c Choice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = memoryEntry{choice: c, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*Choice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, userID)
		return nil, nil
	}
	c := e.choice
	return &c, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}
