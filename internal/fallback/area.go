package fallback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/redis/go-redis/v9"
)

// Area is a string key/value storage area.
type Area interface {
	Name() string
	// Get returns ok == false when the key has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// RedisArea keeps values in Redis under an optional key prefix.
type RedisArea struct {
	client *redis.Client
	prefix string
}

// NewRedisArea wraps client.
func NewRedisArea(client *redis.Client, prefix string) *RedisArea {
	return &RedisArea{client: client, prefix: prefix}
}

func (a *RedisArea) Name() string { return "redis" }

func (a *RedisArea) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := a.client.Get(ctx, a.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (a *RedisArea) Set(ctx context.Context, key, value string) error {
	return a.client.Set(ctx, a.prefix+key, value, 0).Err()
}

// FileArea keeps one file per key inside dir. Writes are atomic renames.
type FileArea struct {
	dir string
}

// NewFileArea creates dir when missing.
func NewFileArea(dir string) (*FileArea, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("fallback dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fallback dir: %w", err)
	}
	return &FileArea{dir: dir}, nil
}

func (a *FileArea) Name() string { return "file" }

func (a *FileArea) path(key string) string {
	return filepath.Join(a.dir, key+".json")
}

func (a *FileArea) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(a.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (a *FileArea) Set(_ context.Context, key, value string) error {
	if err := atomic.WriteFile(a.path(key), strings.NewReader(value)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// MemoryArea lives for the process lifetime.
type MemoryArea struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryArea returns an empty area.
func NewMemoryArea() *MemoryArea {
	return &MemoryArea{data: make(map[string]string)}
}

func (a *MemoryArea) Name() string { return "memory" }

func (a *MemoryArea) Get(_ context.Context, key string) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	value, ok := a.data[key]
	return value, ok, nil
}

func (a *MemoryArea) Set(_ context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[key] = value
	return nil
}
