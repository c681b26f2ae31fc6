package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

var errNoSuchKey = errors.New("NoSuchKey: the specified key does not exist")

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// MemoryStore keeps objects in process memory. It backs STORE_BACKEND=memory
// for local development and doubles as a store in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// List returns matching objects in lexicographic key order, like S3.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var objects []StoredObject
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, StoredObject{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return StoredObject{}, fmt.Errorf("read body: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return StoredObject{}, fmt.Errorf("body is %d bytes, expected %d", len(data), size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	obj := memoryObject{data: data, contentType: contentType, lastModified: m.now()}
	m.objects[key] = obj
	return StoredObject{Key: key, Size: int64(len(data)), LastModified: obj.lastModified}, nil
}

// Delete succeeds for absent keys, matching S3.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) Copy(ctx context.Context, srcKey, dstKey string) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.objects[srcKey]
	if !ok {
		return StoredObject{}, fmt.Errorf("copy %s: %w", srcKey, errNoSuchKey)
	}
	dst := memoryObject{
		data:         bytes.Clone(src.data),
		contentType:  src.contentType,
		lastModified: m.now(),
	}
	m.objects[dstKey] = dst
	return StoredObject{Key: dstKey, Size: int64(len(dst.data)), LastModified: dst.lastModified}, nil
}

func (m *MemoryStore) Stat(ctx context.Context, key string) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return StoredObject{}, fmt.Errorf("stat %s: %w", key, errNoSuchKey)
	}
	return StoredObject{Key: key, Size: int64(len(obj.data)), LastModified: obj.lastModified}, nil
}

// Object returns a copy of the stored bytes and content type of key.
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.Clone(obj.data), obj.contentType, true
}
