package service

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/anukritich/AyushSetu/internal/store"
)

// fakeKV 仅用于单元测试（内存 KV，忽略 TTL）
type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	gets    int
	sets    int
	failAll bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

var errKVDown = errors.New("kv down")

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failAll {
		return "", errKVDown
	}
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.failAll {
		return errKVDown
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
