package actionlog

import (
	"context"
	"sync"
)

// MemoryLog keeps entries in process memory. It does not survive restarts
// and is meant for tests and single-process development.
type MemoryLog struct {
	mu         sync.Mutex
	slots      map[string][]QueuedAction
	maxEntries int
}

func NewMemoryLog(maxEntries int) *MemoryLog {
	return &MemoryLog{slots: map[string][]QueuedAction{}, maxEntries: maxEntries}
}

func (l *MemoryLog) Append(_ context.Context, slot string, action QueuedAction) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.maxEntries > 0 && len(l.slots[slot]) >= l.maxEntries {
		return ErrLogFull
	}
	l.slots[slot] = append(l.slots[slot], action)
	return nil
}

func (l *MemoryLog) ReadAll(_ context.Context, slot string) ([]QueuedAction, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]QueuedAction, len(l.slots[slot]))
	copy(out, l.slots[slot])
	return out, nil
}

func (l *MemoryLog) Clear(_ context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.slots, slot)
	return nil
}

func (l *MemoryLog) IsEmpty(_ context.Context, slot string) (bool, error) {
	if err := checkSlot(slot); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots[slot]) == 0, nil
}

func (l *MemoryLog) Remove(_ context.Context, slot string, n int, retained ...QueuedAction) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.slots[slot]
	if n > len(current) {
		n = len(current)
	}
	if n < 0 {
		n = 0
	}
	next := make([]QueuedAction, 0, len(retained)+len(current)-n)
	next = append(next, retained...)
	next = append(next, current[n:]...)
	if len(next) == 0 {
		delete(l.slots, slot)
		return nil
	}
	l.slots[slot] = next
	return nil
}
