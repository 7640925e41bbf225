package store_test

import (
	"testing"

	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/store/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return store.NewMemoryStore() })
}
