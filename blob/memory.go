package blob

import (
	"context"
	"io"
	"sync"
)

// Memory is an in-process Store for tests and local tooling.
type Memory struct {
	mu      sync.Mutex
	Objects map[string][]byte
	// PutErr, when set, fails every Put.
	PutErr error
}

func NewMemory() *Memory {
	return &Memory{Objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return "", m.PutErr
	}
	m.Objects[objectPath(bucket, key)] = data
	return m.URL(bucket, key), nil
}

func (m *Memory) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := objectPath(bucket, key)
	if _, ok := m.Objects[p]; !ok {
		return ErrNotFound
	}
	delete(m.Objects, p)
	return nil
}

func (m *Memory) URL(bucket, key string) string {
	return "mem://" + objectPath(bucket, key)
}

// Len is the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}
