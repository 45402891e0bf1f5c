package service

import (
	"context"
	"errors"
	"ramadanprep/models"
	"sync"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

var errModelDown = errors.New("model unavailable")

type fakeAI struct {
	mu sync.Mutex

	analyzeResp  string
	analyzeErr   error
	analyzeCalls int
	analyzeGate  chan struct{}

	prepText  string
	prepSrc   []models.Source
	prepErr   error
	prepCalls int
	prepYear  int

	transcribeText string
	transcribeErr  error
	lastAudio      []byte
	lastMIME       string
}

func (f *fakeAI) AnalyzeLogs(ctx context.Context, logsJSON []byte) (string, error) {
	f.mu.Lock()
	gate := f.analyzeGate
	f.analyzeCalls++
	resp, err := f.analyzeResp, f.analyzeErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return resp, err
}

func (f *fakeAI) PrepResearch(ctx context.Context, year int) (string, []models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepCalls++
	f.prepYear = year
	return f.prepText, f.prepSrc, f.prepErr
}

func (f *fakeAI) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAudio = audioData
	f.lastMIME = mimeType
	return f.transcribeText, f.transcribeErr
}

func (f *fakeAI) calls() (analyze, prep int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls, f.prepCalls
}
