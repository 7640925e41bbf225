// Package factory maps configured backend names to constructors. Storage
// backends, metric sinks and notifiers are each declared in configuration as
// a type string plus a free-form settings map; the matching factory decodes
// the settings into its own struct.
//
//	reg := factory.NewRegistry[store.Store]()
//	_ = reg.Register("memory", func(map[string]any) (store.Store, error) {
//	    return store.NewMemoryStore(), nil
//	})
//	st, err := reg.Create(factory.ModuleConfig{Type: "memory"})
package factory
