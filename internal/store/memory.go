package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory ConditionalStore for tests and local runs.
// It honors the same compare-and-swap contract as the GitHub adapter,
// which makes the lost-update race deterministic to reproduce: hand
// two writers the same revision and exactly one WriteIf succeeds.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
	gen  int
}

type memoryDoc struct {
	content  []byte
	revision string
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryDoc)}
}

func (m *Memory) Read(ctx context.Context, path string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[path]
	if !ok {
		return nil, "", ErrNotFound
	}
	content := make([]byte, len(doc.content))
	copy(content, doc.content)
	return content, doc.revision, nil
}

func (m *Memory) WriteIf(ctx context.Context, path string, content []byte, revision, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if ok && doc.revision != revision {
		return ErrConflict
	}
	if !ok && revision != "" {
		return ErrConflict
	}
	m.gen++
	stored := make([]byte, len(content))
	copy(stored, content)
	m.docs[path] = memoryDoc{
		content:  stored,
		revision: fmt.Sprintf("rev-%d", m.gen),
	}
	return nil
}

// Seed installs a document directly, bypassing the revision check,
// and returns its revision token.
func (m *Memory) Seed(path string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	rev := fmt.Sprintf("rev-%d", m.gen)
	stored := make([]byte, len(content))
	copy(stored, content)
	m.docs[path] = memoryDoc{content: stored, revision: rev}
	return rev
}
