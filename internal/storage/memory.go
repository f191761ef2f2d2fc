package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Memory is an in-process Store for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// failUploads holds errors for the next uploads, in order.
	failMu      sync.Mutex
	failUploads []error
}

type memObject struct {
	data        []byte
	contentType string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func memKey(bucket, key string) string { return bucket + "/" + key }

func (m *Memory) Download(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[memKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("get mem://%s/%s: %w", bucket, key, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) Upload(_ context.Context, bucket, key string, data []byte, contentType string) error {
	m.failMu.Lock()
	if len(m.failUploads) > 0 {
		err := m.failUploads[0]
		m.failUploads = m.failUploads[1:]
		m.failMu.Unlock()
		return err
	}
	m.failMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = memObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *Memory) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[memKey(bucket, key)]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("sign mem://%s/%s: %w", bucket, key, ErrNotFound)
	}
	u := url.URL{
		Scheme:   "mem",
		Host:     bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {time.Now().Add(ttl).UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}

// ContentType returns the stored content type of an object.
func (m *Memory) ContentType(bucket, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[memKey(bucket, key)]
	return obj.contentType, ok
}

// FailNextUploads makes the next len(errs) uploads fail with errs in order.
func (m *Memory) FailNextUploads(errs ...error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failUploads = append(m.failUploads, errs...)
}
