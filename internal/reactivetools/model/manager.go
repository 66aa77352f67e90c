package model

import "sync"

// ManagerConfig describes the optional external attestation-manager
// service. When ConfigPath is empty the manager is disabled and
// attestation runs locally on every node driver.
type ManagerConfig struct {
	ConfigPath string
	Host       string
	Port       uint16
	Key        []byte // admin key

	mu            sync.Mutex
	spPubKeyCache []byte // memoised service-provider public key
}

// CachedSPPubKey returns the cached service-provider public key and whether
// it has been fetched yet. Guarded by a mutex so concurrent callers see a consistent memo.
func (m *ManagerConfig) CachedSPPubKey() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.spPubKeyCache == nil {
		return nil, false
	}
	return m.spPubKeyCache, true
}

// SetSPPubKeyCache stores the fetched service-provider public key so later
// callers short-circuit the attman-cli subprocess invocation.
func (m *ManagerConfig) SetSPPubKeyCache(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spPubKeyCache = key
}

// Enabled reports whether manager offload is configured.
func (m *ManagerConfig) Enabled() bool {
	return m != nil && m.ConfigPath != ""
}
