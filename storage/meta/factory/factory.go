package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/storage/meta"
)

// Factory builds a metadata store for the provided metadata config.
type Factory func(*config.Metadata) (meta.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a metadata store factory for the given strategy name.
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

// Create builds a metadata store using the registered factory for the
// configured strategy.
func Create(cfg *config.Metadata) (meta.Store, error) {
	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown metadata strategy %q", cfg.Strategy)
	}
	return f(cfg)
}

func init() {
	Register("sql", func(cfg *config.Metadata) (meta.Store, error) {
		return meta.NewSQLStore(cfg.SQL, cfg.TablePrefix)
	})

	Register("d1", func(cfg *config.Metadata) (meta.Store, error) {
		return meta.NewD1Store(cfg.D1, cfg.TablePrefix)
	})
}
