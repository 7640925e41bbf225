package store

import "github.com/kilianp07/fleetops/core/factory"

var backends = factory.NewRegistry[Store]()

func init() {
	backends.MustRegister("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
}

// RegisterBackend adds a storage backend factory identified by name.
func RegisterBackend(name string, f factory.Factory[Store]) error {
	return backends.Register(name, f)
}

// Backends lists the registered backend names.
func Backends() []string { return backends.Names() }

// Open creates the backend described by cfg. An empty type selects memory.
func Open(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return backends.Create(cfg)
}
