package descriptor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
)

const minimalJSON = `{
	"nodes": [
		{"name": "node-a", "ip_address": "10.0.0.1", "reactive_port": 8080, "deploy_port": 8081, "backend": "nosgx"}
	],
	"modules": [
		{"name": "counter", "node": "node-a", "backend": "nosgx"}
	],
	"connections_current_id": 1,
	"connections": [
		{"id": 0, "name": "c1", "to_module": "counter", "to_input": "in", "from_module": "counter", "from_output": "out", "direct": false}
	],
	"events_current_id": 0,
	"periodic-events": []
}`

func TestParse_JSON(t *testing.T) {
	cfg, err := descriptor.Parse([]byte(minimalJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Nodes) != 1 || cfg.Nodes[0].String("name") != "node-a" {
		t.Errorf("Nodes = %v, want one node named node-a", cfg.Nodes)
	}
	if len(cfg.Modules) != 1 || cfg.Modules[0].String("name") != "counter" {
		t.Errorf("Modules = %v, want one module named counter", cfg.Modules)
	}
	if len(cfg.Connections) != 1 || cfg.Connections[0].Name != "c1" {
		t.Fatalf("Connections = %v, want one connection named c1", cfg.Connections)
	}
}

func TestParse_YAML(t *testing.T) {
	yamlDoc := `
nodes:
  - name: node-a
    ip_address: 10.0.0.1
    reactive_port: 8080
    deploy_port: 8081
    backend: nosgx
modules: []
connections_current_id: 0
connections: []
events_current_id: 0
periodic-events: []
`
	cfg, err := descriptor.Parse([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Nodes) != 1 {
		t.Fatalf("Nodes = %v, want one node", cfg.Nodes)
	}
}

func TestParse_InvalidInput(t *testing.T) {
	if _, err := descriptor.Parse([]byte("not json or yaml: [[[")); err == nil {
		t.Error("expected an error for unparseable input")
	}
}

func TestConfig_DumpAndLoad_JSON(t *testing.T) {
	cfg, err := descriptor.Parse([]byte(minimalJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "descriptor.json")
	if err := cfg.DumpAs(path, descriptor.FormatJSON); err != nil {
		t.Fatalf("DumpAs: %v", err)
	}

	reloaded, err := descriptor.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Nodes) != len(cfg.Nodes) {
		t.Errorf("reloaded Nodes = %d, want %d", len(reloaded.Nodes), len(cfg.Nodes))
	}
	if len(reloaded.Connections) != len(cfg.Connections) {
		t.Errorf("reloaded Connections = %d, want %d", len(reloaded.Connections), len(cfg.Connections))
	}
}

func TestConfig_DumpAs_UnknownFormat(t *testing.T) {
	cfg, _ := descriptor.Parse([]byte(minimalJSON))
	path := filepath.Join(t.TempDir(), "descriptor.out")
	if err := cfg.DumpAs(path, descriptor.Format("toml")); err == nil {
		t.Error("expected an error for an unknown dump format")
	}
}

func TestLoadStrict_RejectsSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descriptor.json")
	body := `{"nodes": [{"name": 123}], "modules": [], "connections": [], "periodic-events": []}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := descriptor.LoadStrict(path); err == nil {
		t.Error("expected a schema validation error for a non-string node name")
	}
}
