// Package descriptor loads and persists the JSON/YAML deployment
// descriptor: an auto-detected document carrying nodes,
// modules, connections and periodic events, plus the rolling ID counters
// and optional manager configuration. Node and module records keep their
// per-backend fields as a generic Record map (see record.go) since the
// schema varies by backend; connections, events and the manager have a
// fixed shape and round-trip through typed model values.
package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

// Format identifies which serialization a descriptor file is written in.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Config is the in-memory deployment descriptor.
type Config struct {
	Manager Record

	Nodes   []Record
	Modules []Record

	ConnectionsCurrentID uint16
	Connections          []*model.Connection

	EventsCurrentID uint16
	PeriodicEvents  []*model.PeriodicEvent

	// format remembers which serialization the file was loaded as, so Dump
	// without an explicit override round-trips in the same format.
	format Format
}

// wireDoc is the literal on-disk shape, used for both JSON and YAML
// (un)marshalling; yaml.v3 and encoding/json agree on map[string]interface{}
// for untyped objects, so the same struct serves both codecs.
type wireDoc struct {
	Manager              map[string]interface{}   `json:"manager,omitempty" yaml:"manager,omitempty"`
	Nodes                []map[string]interface{} `json:"nodes" yaml:"nodes"`
	Modules              []map[string]interface{} `json:"modules" yaml:"modules"`
	ConnectionsCurrentID uint16                    `json:"connections_current_id" yaml:"connections_current_id"`
	Connections          []map[string]interface{} `json:"connections" yaml:"connections"`
	EventsCurrentID      uint16                    `json:"events_current_id" yaml:"events_current_id"`
	PeriodicEvents       []map[string]interface{} `json:"periodic-events" yaml:"periodic-events"`
}

// Load auto-detects the descriptor's serialization (JSON is tried first,
// then YAML) and decodes it into a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes descriptor bytes of unknown format.
func Parse(data []byte) (*Config, error) {
	var doc wireDoc
	format := FormatJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		format = FormatYAML
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return nil, fmt.Errorf("descriptor: not valid JSON (%v) or YAML (%w)", err, yerr)
		}
	}
	return fromWireDoc(&doc, format)
}

// LoadStrict loads path like Load, but first validates it against the
// descriptor's structural JSON schema.
func LoadStrict(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	return Parse(data)
}

func validateSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("descriptor.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("descriptor: load schema: %w", err)
	}
	schema, err := compiler.Compile("descriptor.json")
	if err != nil {
		return fmt.Errorf("descriptor: compile schema: %w", err)
	}

	var doc interface{}
	if jerr := json.Unmarshal(data, &doc); jerr != nil {
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return fmt.Errorf("descriptor: not valid JSON (%v) or YAML (%w)", jerr, yerr)
		}
		doc = jsonify(doc)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("descriptor: schema validation failed: %w", err)
	}
	return nil
}

// jsonify recursively converts map[interface{}]interface{} nodes (which
// some YAML decoders produce) into map[string]interface{}, which the
// jsonschema validator requires. yaml.v3 already decodes into
// map[string]interface{}, so this is mostly a defensive no-op, but keeps
// the validator correct if that assumption ever changes upstream.
func jsonify(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprintf("%v", k)] = jsonify(val)
		}
		return m
	case map[string]interface{}:
		for k, val := range t {
			t[k] = jsonify(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = jsonify(val)
		}
		return t
	default:
		return v
	}
}

func fromWireDoc(doc *wireDoc, format Format) (*Config, error) {
	cfg := &Config{
		format:               format,
		Manager:              Record(doc.Manager),
		ConnectionsCurrentID: doc.ConnectionsCurrentID,
		EventsCurrentID:      doc.EventsCurrentID,
	}
	for _, n := range doc.Nodes {
		cfg.Nodes = append(cfg.Nodes, Record(n))
	}
	for _, m := range doc.Modules {
		cfg.Modules = append(cfg.Modules, Record(m))
	}
	for _, c := range doc.Connections {
		conn, err := recordToConnection(Record(c))
		if err != nil {
			return nil, err
		}
		cfg.Connections = append(cfg.Connections, conn)
	}
	for _, e := range doc.PeriodicEvents {
		cfg.PeriodicEvents = append(cfg.PeriodicEvents, recordToEvent(Record(e)))
	}
	return cfg, nil
}

func (c *Config) toWireDoc() wireDoc {
	doc := wireDoc{
		ConnectionsCurrentID: c.ConnectionsCurrentID,
		EventsCurrentID:      c.EventsCurrentID,
	}
	if c.Manager != nil {
		doc.Manager = map[string]interface{}(c.Manager)
	}
	for _, n := range c.Nodes {
		doc.Nodes = append(doc.Nodes, map[string]interface{}(n))
	}
	for _, m := range c.Modules {
		doc.Modules = append(doc.Modules, map[string]interface{}(m))
	}
	for _, conn := range c.Connections {
		doc.Connections = append(doc.Connections, map[string]interface{}(connectionToRecord(conn)))
	}
	for _, ev := range c.PeriodicEvents {
		doc.PeriodicEvents = append(doc.PeriodicEvents, map[string]interface{}(eventToRecord(ev)))
	}
	if doc.Nodes == nil {
		doc.Nodes = []map[string]interface{}{}
	}
	if doc.Modules == nil {
		doc.Modules = []map[string]interface{}{}
	}
	if doc.Connections == nil {
		doc.Connections = []map[string]interface{}{}
	}
	if doc.PeriodicEvents == nil {
		doc.PeriodicEvents = []map[string]interface{}{}
	}
	return doc
}

// Dump writes cfg to path in its original load format. Each format writes
// its bytes and returns, full stop; there is no fallthrough between the
// JSON and YAML branches.
func (c *Config) Dump(path string) error {
	return c.DumpAs(path, c.format)
}

// DumpAs writes cfg to path in the given format, overriding the format it
// was loaded in.
func (c *Config) DumpAs(path string, format Format) error {
	doc := c.toWireDoc()

	var out []byte
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("descriptor: marshal json: %w", err)
		}
		out = data
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("descriptor: marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("descriptor: close yaml encoder: %w", err)
		}
		out = buf.Bytes()
	default:
		return fmt.Errorf("descriptor: unknown format %q", format)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("descriptor: write %s: %w", path, err)
	}
	return nil
}
