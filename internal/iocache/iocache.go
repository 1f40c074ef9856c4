// Package iocache persists repository results and run history in SQL databases.
package iocache

import (
	"sync"

	"github.com/huangsam/repopulse/internal/contract"
)

// StoreManager holds the result cache and run history stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	results      contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &StoreManager{} // Compile-time check

// GetResultStore returns the result cache, or nil when caching is disabled.
func (mgr *StoreManager) GetResultStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.results
}

// GetHistoryStore returns the run history store, or nil when tracking is disabled.
func (mgr *StoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
