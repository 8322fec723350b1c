package pkg

import (
	"fmt"
	"os"

	"github.com/dgraph-io/ristretto"
)

// Loader parses plist files and memoises the resulting trees. The
// cache key covers path, mtime and size, so a rewritten file is
// re-parsed while an unchanged one returns the cached root. Cached
// trees are shared between callers and must be treated as read-only.
type Loader struct {
	cache *ristretto.Cache
	opts  []Option
}

// NewLoader builds a loader; opts apply to every parse it performs.
func NewLoader(opts ...Option) (*Loader, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating cache: %w", err)
	}
	return &Loader{cache: cache, opts: opts}, nil
}

// Load returns the tree for path, from cache when the file is
// unchanged since the last parse. Parse failures are not cached.
func (l *Loader) Load(path string) (Object, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error opening input file: %w", err)
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if cached, ok := l.cache.Get(key); ok {
		return cached.(Object), nil
	}

	root, err := ParseFile(path, l.opts...)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, root, info.Size())
	l.cache.Wait()
	return root, nil
}

// Close releases the cache's internal resources.
func (l *Loader) Close() {
	l.cache.Close()
}
