package modules

import (
	"encoding/json"
	"fmt"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

// DataManifest is the name→id endpoint map emitted by the SGX/Native/
// TrustZone code generators.
type DataManifest struct {
	Inputs      map[string]uint16 `json:"inputs"`
	Outputs     map[string]uint16 `json:"outputs"`
	Entrypoints map[string]uint16 `json:"entrypoints"`
	Handlers    map[string]uint16 `json:"handlers"`
	Requests    map[string]uint16 `json:"requests"`
}

// ParseDataManifest decodes a codegen-produced manifest file.
func ParseDataManifest(data []byte) (*DataManifest, error) {
	var m DataManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("modules: parse data manifest: %w", err)
	}
	return &m, nil
}

// Apply copies the manifest's endpoint tables onto base.
func (m *DataManifest) Apply(base *model.ModuleBase) {
	base.Inputs = m.Inputs
	base.Outputs = m.Outputs
	base.Entrypoints = m.Entrypoints
	base.Handlers = m.Handlers
	base.Requests = m.Requests
}
