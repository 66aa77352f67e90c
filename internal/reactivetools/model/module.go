package model

import "strconv"

// ModuleBase holds the fields common to every backend's module.
type ModuleBase struct {
	Name    string
	Node    string // owning node name
	OldNode string // node before an update; equals Node if never updated

	Deployed bool
	Attested bool
	Priority *int // nil means "no priority": deployed in the unordered phase

	// Nonce is a 16-bit monotonic counter used as associated data for
	// SetKey/Disable. It must strictly increase across every send;
	// the counter is advanced only after a successful send.
	Nonce uint16

	Backend Backend
	ID      uint16 // on-node id, assigned once Deployed

	Key []byte // module key, present once Attested

	// DeployName is the name under which the module is registered inside
	// the EM; it may differ from Name so a replaced module can coexist with
	// its clone during update.
	DeployName string

	// Endpoint tables discovered from build artefacts: name -> 16-bit index.
	Inputs      map[string]uint16
	Outputs     map[string]uint16
	Entrypoints map[string]uint16
	Requests    map[string]uint16
	Handlers    map[string]uint16

	Encryption           Encryption  // the chosen AEAD for this module
	SupportedEncryptions []Encryption
}

// Encryption mirrors crypto.Encryption without importing the crypto package,
// keeping model free of behavioral dependencies. Node/module drivers convert
// between the two with a trivial cast; both are defined as uint8.
type Encryption uint8

const (
	EncryptionAESGCM128   Encryption = 0
	EncryptionSpongent128 Encryption = 1
)

// NextNonce returns the next nonce to use and advances the counter. Callers
// must only call this once the corresponding wire command has been
// successfully sent.
func (m *ModuleBase) NextNonce() uint16 {
	n := m.Nonce
	m.Nonce++
	return n
}

// ResolveEndpoint looks up ref in table by name, unless ref looks like a
// numeric literal, in which case it is parsed and returned directly
// (numeric-looking strings are always treated as pre-assigned ids, never
// as names, even if a module happens to have a name that parses as a
// number).
func ResolveEndpoint(table map[string]uint16, ref string) (uint16, bool) {
	if n, err := strconv.ParseUint(ref, 10, 16); err == nil {
		return uint16(n), true
	}
	id, ok := table[ref]
	return id, ok
}

// GetInputID resolves an input endpoint reference.
func (m *ModuleBase) GetInputID(ref string) (uint16, bool) { return ResolveEndpoint(m.Inputs, ref) }

// GetOutputID resolves an output endpoint reference.
func (m *ModuleBase) GetOutputID(ref string) (uint16, bool) { return ResolveEndpoint(m.Outputs, ref) }

// GetEntryID resolves an entrypoint reference.
func (m *ModuleBase) GetEntryID(ref string) (uint16, bool) {
	return ResolveEndpoint(m.Entrypoints, ref)
}

// GetRequestID resolves a request endpoint reference.
func (m *ModuleBase) GetRequestID(ref string) (uint16, bool) {
	return ResolveEndpoint(m.Requests, ref)
}

// GetHandlerID resolves a handler endpoint reference.
func (m *ModuleBase) GetHandlerID(ref string) (uint16, bool) {
	return ResolveEndpoint(m.Handlers, ref)
}

// SupportsEncryption reports whether e is in the module's supported set.
func (m *ModuleBase) SupportsEncryption(e Encryption) bool {
	for _, s := range m.SupportedEncryptions {
		if s == e {
			return true
		}
	}
	return false
}

// CloneBase returns a copy of m with runtime state cleared, as required by
// the module update flow: deployed/attested reset, a
// fresh id, no cached artefacts, and a DeployName suffix bumped so the clone
// can coexist with the module it replaces inside the EM.
func (m *ModuleBase) CloneBase(newDeployName string) ModuleBase {
	clone := *m
	clone.Deployed = false
	clone.Attested = false
	clone.ID = 0
	clone.Key = nil
	clone.Nonce = 0
	clone.DeployName = newDeployName
	clone.OldNode = m.Node
	// Endpoint tables are rebuilt by a fresh build(), not carried over.
	clone.Inputs = nil
	clone.Outputs = nil
	clone.Entrypoints = nil
	clone.Requests = nil
	clone.Handlers = nil
	return clone
}
