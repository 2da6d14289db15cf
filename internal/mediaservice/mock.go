package mediaservice

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local runs without a bucket.
type MemoryStore struct {
	mu      sync.Mutex
	BaseURL string
	Expiry  time.Duration
	Objects map[string][]byte
	Signs   map[string]int
	Fail    bool
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		BaseURL: "https://storage.test/bucket",
		Expiry:  time.Hour,
		Objects: make(map[string][]byte),
		Signs:   make(map[string]int),
		now:     time.Now,
	}
}

func (s *MemoryStore) SetFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fail = fail
}

// SignCount returns how many times key has been signed.
func (s *MemoryStore) SignCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Signs[key]
}

func (s *MemoryStore) TotalSigns() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.Signs {
		n += c
	}
	return n
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

func (s *MemoryStore) Resolve(_ context.Context, key string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return "", time.Time{}, fmt.Errorf("%w: presign %s", ErrStorageUnavailable, key)
	}

	s.Signs[key]++
	return fmt.Sprintf("%s/%s?sig=%d", s.BaseURL, key, s.Signs[key]), s.now().Add(s.Expiry), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return fmt.Errorf("%w: put %s", ErrStorageUnavailable, key)
	}

	s.Objects[key] = b
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return fmt.Errorf("%w: remove %s", ErrStorageUnavailable, key)
	}

	delete(s.Objects, key)
	return nil
}

func (s *MemoryStore) PresignPut(_ context.Context, key string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return "", time.Time{}, fmt.Errorf("%w: presign put %s", ErrStorageUnavailable, key)
	}

	return fmt.Sprintf("%s/%s?upload=1", s.BaseURL, key), s.now().Add(s.Expiry), nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return ErrStorageUnavailable
	}
	return nil
}
