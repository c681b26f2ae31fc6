package services

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockObjectStore implements ObjectStore for testing
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]StoredObject, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StoredObject), args.Error(1)
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (StoredObject, error) {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Get(0).(StoredObject), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) Copy(ctx context.Context, srcKey, dstKey string) (StoredObject, error) {
	args := m.Called(ctx, srcKey, dstKey)
	return args.Get(0).(StoredObject), args.Error(1)
}

func (m *MockObjectStore) Stat(ctx context.Context, key string) (StoredObject, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(StoredObject), args.Error(1)
}

// failingDeleteStore is a MemoryStore whose Delete returns the queued errors
// first, then behaves normally.
type failingDeleteStore struct {
	*MemoryStore
	deleteErrs  []error
	deleteCalls int
}

func (s *failingDeleteStore) Delete(ctx context.Context, key string) error {
	s.deleteCalls++
	if len(s.deleteErrs) > 0 {
		err := s.deleteErrs[0]
		s.deleteErrs = s.deleteErrs[1:]
		return err
	}
	return s.MemoryStore.Delete(ctx, key)
}
