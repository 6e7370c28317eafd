package queue

import (
	"context"
	"sync"
)

// MemoryDriftLedger is the in-process ledger used when redis is not
// configured. Ids come back out in the order they were first recorded.
type MemoryDriftLedger struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

func NewMemoryDriftLedger() *MemoryDriftLedger {
	return &MemoryDriftLedger{set: make(map[string]struct{})}
}

func (m *MemoryDriftLedger) Record(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.set[userID]; ok {
		return nil
	}
	m.set[userID] = struct{}{}
	m.order = append(m.order, userID)
	return nil
}

func (m *MemoryDriftLedger) Drain(ctx context.Context, max int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if max <= 0 || max > len(m.order) {
		max = len(m.order)
	}
	out := append([]string(nil), m.order[:max]...)
	m.order = m.order[max:]
	for _, id := range out {
		delete(m.set, id)
	}
	return out, nil
}

func (m *MemoryDriftLedger) Size(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.order)), nil
}
