package provider

import (
	"context"
	"sync"
)

// Mock is an in-process generator that never calls out. It counts calls so
// tests can verify whether the external service would have been invoked.
type Mock struct {
	Response string
	Image    []byte
	Err      error

	mu         sync.Mutex
	textCalls  int
	imageCalls int
}

func (m *Mock) GenerateText(_ context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	m.textCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return "Generated content for: " + req.Prompt, nil
}

func (m *Mock) GenerateImage(_ context.Context, prompt string) ([]byte, error) {
	m.mu.Lock()
	m.imageCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Image != nil {
		return m.Image, nil
	}
	return []byte(prompt), nil
}

// TextCalls returns how many times GenerateText was invoked
func (m *Mock) TextCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCalls
}

// ImageCalls returns how many times GenerateImage was invoked
func (m *Mock) ImageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageCalls
}
