package callbacklog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLog struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryLog creates an in-memory callback log for tests.
func NewMemoryLog() Log {
	return &memoryLog{}
}

func (l *memoryLog) Append(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memoryLog) ByConversationID(_ context.Context, conversationID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ConversationID == conversationID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}
