package main

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/damacus/iron-shelf/internal/services"
)

// MockObjectStore implements services.ObjectStore for testing
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]services.StoredObject, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.StoredObject), args.Error(1)
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (services.StoredObject, error) {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Get(0).(services.StoredObject), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) Copy(ctx context.Context, srcKey, dstKey string) (services.StoredObject, error) {
	args := m.Called(ctx, srcKey, dstKey)
	return args.Get(0).(services.StoredObject), args.Error(1)
}

func (m *MockObjectStore) Stat(ctx context.Context, key string) (services.StoredObject, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(services.StoredObject), args.Error(1)
}

// MockUsageReader implements handlers.UsageReader for testing
type MockUsageReader struct {
	mock.Mock
}

func (m *MockUsageReader) BucketUsage(ctx context.Context) (services.BucketUsage, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.BucketUsage), args.Error(1)
}
