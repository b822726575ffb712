package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("draft store closed")

// DraftChange is a write or removal observed on a draft key.
type DraftChange struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Removed bool   `json:"removed"`
	Origin  string `json:"origin"`
}

// DraftStore is a durable key/value store for serialized drafts with a change feed.
// Origin identifies the writer so subscribers can ignore their own writes.
type DraftStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value, origin string) error
	Remove(ctx context.Context, key, origin string) error
	// Subscribe calls fn for every change to key until the returned cancel func is called.
	Subscribe(ctx context.Context, key string, fn func(DraftChange)) (func(), error)
	Close() error
}

// feed fans changes out to in-process subscribers.
type feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(DraftChange)
}

func newFeed() *feed {
	return &feed{subs: make(map[string]map[int]func(DraftChange))}
}

func (f *feed) add(key string, fn func(DraftChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	if f.subs[key] == nil {
		f.subs[key] = make(map[int]func(DraftChange))
	}
	f.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[key], id)
			if len(f.subs[key]) == 0 {
				delete(f.subs, key)
			}
		})
	}
}

func (f *feed) publish(change DraftChange) {
	f.mu.RLock()
	fns := make([]func(DraftChange), 0, len(f.subs[change.Key]))
	for _, fn := range f.subs[change.Key] {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
