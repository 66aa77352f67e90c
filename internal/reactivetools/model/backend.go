// Package model defines the plain data types shared across the descriptor:
// the common node/module fields, connections, periodic events and the
// manager configuration. Behavior (Build/Deploy/Attest/...) lives in the
// nodes and modules packages, which embed these types.
package model

// Backend identifies which trusted-execution platform a node or module
// targets.
type Backend string

const (
	BackendSancus     Backend = "sancus"
	BackendSGX        Backend = "sgx"
	BackendNative     Backend = "nosgx"
	BackendTrustZone  Backend = "trustzone"
)

// Valid reports whether b is one of the four supported backends.
func (b Backend) Valid() bool {
	switch b {
	case BackendSancus, BackendSGX, BackendNative, BackendTrustZone:
		return true
	default:
		return false
	}
}
