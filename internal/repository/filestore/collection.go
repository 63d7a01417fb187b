package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/moby/sys/atomicwriter"
)

// collection is one JSON file holding a map of primary key → document.
//
// Reads load the whole file; writes replace the whole file through a temp file and
// rename, so a reader never observes a half-written collection. The RWMutex is the
// single-writer serialization point: every read-modify-write holds the write lock for
// the full load → mutate → save cycle.
type collection[T any] struct {
	mu   sync.RWMutex
	path string
}

func newCollection[T any](path string) *collection[T] {
	return &collection[T]{path: path}
}

// load reads the collection. A missing or empty file is an empty collection;
// a file that fails to parse is an error.
func (c *collection[T]) load() (map[string]T, error) {
	docs := make(map[string]T)

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return docs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return docs, nil
	}

	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c.path, err)
	}
	return docs, nil
}

func (c *collection[T]) save(docs map[string]T) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.path, err)
	}
	if err := atomicwriter.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	return nil
}

// view runs fn against a snapshot of the collection under the read lock.
func (c *collection[T]) view(fn func(docs map[string]T) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs, err := c.load()
	if err != nil {
		return err
	}
	return fn(docs)
}

// update runs fn under the write lock and persists the collection when fn reports a change.
func (c *collection[T]) update(fn func(docs map[string]T) (changed bool, err error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.load()
	if err != nil {
		return err
	}
	changed, err := fn(docs)
	if err != nil || !changed {
		return err
	}
	return c.save(docs)
}

// size returns the file size in bytes, 0 when the file does not exist yet.
func (c *collection[T]) size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
