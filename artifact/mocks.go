package artifact

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
)

// MockResponse is one canned answer of MockFetcher.
type MockResponse struct {
	Body []byte
	// Length is the advertised Content-Length; HasLength false means none.
	Length    int64
	HasLength bool
	HeadErr   error
	GetErr    error
}

// MockFetcher implements ports.Fetcher from a map of URL to response.
// Unknown URLs answer with BadStatus 404.
type MockFetcher struct {
	Responses map[string]MockResponse

	mu   sync.Mutex
	Gets []string
}

func (m *MockFetcher) Head(ctx context.Context, url string) (int64, bool, error) {
	r, ok := m.Responses[url]
	if !ok {
		return 0, false, &entities.BadStatusError{URL: url, StatusCode: 404}
	}
	if r.HeadErr != nil {
		return 0, false, r.HeadErr
	}
	return r.Length, r.HasLength, nil
}

func (m *MockFetcher) Get(ctx context.Context, url string, limit int64) ([]byte, error) {
	m.mu.Lock()
	m.Gets = append(m.Gets, url)
	m.mu.Unlock()

	r, ok := m.Responses[url]
	if !ok {
		return nil, &entities.BadStatusError{URL: url, StatusCode: 404}
	}
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	if limit > 0 && int64(len(r.Body)) > limit {
		return nil, &entities.TooLargeError{Size: limit + 1, Limit: limit}
	}
	return r.Body, nil
}

// GetCount returns how many GET requests were made.
func (m *MockFetcher) GetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Gets)
}

// MockStore implements ports.KeyValueStore in memory.
type MockStore struct {
	mu     sync.Mutex
	Values map[string]string
	Err    error
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", false, m.Err
	}
	v, ok := m.Values[key]
	return v, ok, nil
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Values, key)
	return nil
}

// StampCall records one MockStamper request.
type StampCall struct {
	Path  string
	Patch map[string]string
}

// MockStamper implements ports.Stamper and records its calls.
type MockStamper struct {
	mu    sync.Mutex
	Calls []StampCall
	Err   error
}

func (m *MockStamper) Stamp(ctx context.Context, path string, patch map[string]string) <-chan error {
	m.mu.Lock()
	m.Calls = append(m.Calls, StampCall{Path: path, Patch: patch})
	m.mu.Unlock()

	ch := make(chan error, 1)
	ch <- m.Err
	return ch
}

// MockSidecars implements ports.SidecarRepository in memory, keyed by directory.
type MockSidecars struct {
	mu   sync.Mutex
	Data map[string]map[string]string
	Err  error
}

func (m *MockSidecars) Load(ctx context.Context, dir string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.Data[dir] {
		out[k] = v
	}
	return out, m.Err
}

func (m *MockSidecars) Put(ctx context.Context, dir, fileName, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Data == nil {
		m.Data = make(map[string]map[string]string)
	}
	if m.Data[dir] == nil {
		m.Data[dir] = make(map[string]string)
	}
	m.Data[dir][fileName] = id
	return nil
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
