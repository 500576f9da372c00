package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"sync"
)

// Mock produces deterministic vectors derived from the input text, so equal
// texts embed identically and distinct texts almost surely differ.
type Mock struct {
	dimensions int

	mu    sync.Mutex
	err   error
	calls int
}

// NewMock returns a deterministic mock with the given dimensionality.
func NewMock(dimensions int) *Mock {
	if dimensions <= 0 {
		dimensions = 1536
	}

	return &Mock{dimensions: dimensions}
}

// FailWith makes every subsequent call return err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, m.dimensions)

	for i := range vec {
		word := binary.BigEndian.Uint32(sum[(i*4)%28 : (i*4)%28+4])
		vec[i] = float32(word%2000)/1000 - 1
	}

	return vec, nil
}

func (m *Mock) Dimensions() int {
	return m.dimensions
}

// Calls reports how many embeddings were requested.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}
