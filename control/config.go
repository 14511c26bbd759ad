// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration snapshot store.

package control

import (
	"maps"
	"sync"
)

// ConfigStore is a key/value map with snapshot reads.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: make(map[string]any)}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// SetConfig merges new values.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	maps.Copy(cs.config, newCfg)
}
