package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/storage/object"
	"github.com/indieinfra/clipvault/storage/object/filesystem"
	"github.com/indieinfra/clipvault/storage/object/s3"
)

// Factory builds an object store for the provided objects config.
type Factory func(*config.Objects) (object.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces an object store factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

// Get retrieves a factory for the given strategy.
func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

// Create builds an object store using the registered factory for the
// configured strategy.
func Create(cfg *config.Objects) (object.Store, error) {
	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown object strategy %q", cfg.Strategy)
	}
	return f(cfg)
}

func init() {
	Register("s3", func(cfg *config.Objects) (object.Store, error) {
		return s3.NewS3ObjectStore(cfg)
	})

	Register("filesystem", func(cfg *config.Objects) (object.Store, error) {
		return filesystem.NewFilesystemObjectStore(cfg)
	})
}
