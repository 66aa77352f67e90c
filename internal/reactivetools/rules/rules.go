// Package rules interprets the per-kind YAML rule files embedded in
// data/ against a loaded descriptor record, implementing a fixed
// predicate vocabulary (is_present, has_value, authorized_keys,
// is_positive_number, is_deploy). All rule violations for one record
// aggregate into a single BadDescriptorError naming every failed
// predicate, rather than failing fast on the first one.
package rules

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Kind names a descriptor entity kind, one per rules/data/*.yaml file.
type Kind string

const (
	KindNode       Kind = "node"
	KindModule     Kind = "module"
	KindConnection Kind = "connection"
	KindEvent      Kind = "event"
	KindManager    Kind = "manager"
)

type ruleFile struct {
	Rules []struct {
		Predicate string   `yaml:"predicate"`
		Args      []string `yaml:"args"`
	} `yaml:"rules"`
}

var loaded = map[Kind]ruleFile{}

func load(kind Kind) (ruleFile, error) {
	if rf, ok := loaded[kind]; ok {
		return rf, nil
	}
	data, err := dataFS.ReadFile(fmt.Sprintf("data/%s.yaml", kind))
	if err != nil {
		return ruleFile{}, fmt.Errorf("rules: read %s rules: %w", kind, err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return ruleFile{}, fmt.Errorf("rules: parse %s rules: %w", kind, err)
	}
	loaded[kind] = rf
	return rf, nil
}

// predicate is a single named check over a record; args come straight from
// the rule file (field names, or for has_value a field/value pair).
type predicate func(r descriptor.Record, args []string) bool

var predicates = map[string]predicate{
	"is_present":         isPresent,
	"has_value":          hasValue,
	"authorized_keys":    authorizedKeys,
	"is_positive_number": isPositiveNumber,
	"is_deploy":          isDeploy,
}

// Check validates r against kind's rule file, returning a *BadDescriptorError
// naming every failed predicate, or nil if r satisfies all of them.
func Check(kind Kind, name string, r descriptor.Record) error {
	rf, err := load(kind)
	if err != nil {
		return err
	}

	var failed []string
	for _, rule := range rf.Rules {
		fn, ok := predicates[rule.Predicate]
		if !ok {
			return fmt.Errorf("rules: unknown predicate %q", rule.Predicate)
		}
		if !fn(r, rule.Args) {
			failed = append(failed, rule.Predicate)
		}
	}
	if len(failed) > 0 {
		return &errs.BadDescriptorError{Kind: string(kind), Name: name, Rules: failed}
	}
	return nil
}

// ValidateConfig runs Check over every record in cfg, returning the first
// violation encountered. Connections and events are checked via
// their Record projection so the same predicate vocabulary covers every
// entity kind uniformly.
func ValidateConfig(cfg *descriptor.Config) error {
	for _, n := range cfg.Nodes {
		if err := Check(KindNode, n.String("name"), n); err != nil {
			return err
		}
	}
	for _, m := range cfg.Modules {
		if err := Check(KindModule, m.String("name"), m); err != nil {
			return err
		}
	}
	for _, c := range cfg.Connections {
		if err := Check(KindConnection, c.Name, descriptor.ConnectionRecord(c)); err != nil {
			return err
		}
	}
	for _, e := range cfg.PeriodicEvents {
		if err := Check(KindEvent, e.Name, descriptor.EventRecord(e)); err != nil {
			return err
		}
	}
	if cfg.Manager != nil {
		if err := Check(KindManager, "manager", cfg.Manager); err != nil {
			return err
		}
	}
	return nil
}

func isPresent(r descriptor.Record, args []string) bool {
	for _, key := range args {
		if _, ok := r[key]; !ok {
			return false
		}
	}
	return true
}

func hasValue(r descriptor.Record, args []string) bool {
	if len(args) != 2 {
		return false
	}
	return r.String(args[0]) == args[1]
}

func authorizedKeys(r descriptor.Record, args []string) bool {
	allowed := make(map[string]bool, len(args))
	for _, key := range args {
		allowed[key] = true
	}
	for key := range r {
		if !allowed[key] {
			return false
		}
	}
	return true
}

func isPositiveNumber(r descriptor.Record, args []string) bool {
	for _, key := range args {
		v, ok := r[key]
		if !ok {
			return false
		}
		switch n := v.(type) {
		case int:
			if n <= 0 {
				return false
			}
		case int64:
			if n <= 0 {
				return false
			}
		case float64:
			if n <= 0 {
				return false
			}
		case uint64:
			if n == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// isDeploy enforces phase-dependent field presence: a deployed module
// must carry a positive id; an attested module must also carry a key.
// Modules not yet deployed are vacuously fine.
func isDeploy(r descriptor.Record, _ []string) bool {
	if !r.Bool("deployed") {
		return true
	}
	if !isPositiveNumber(r, []string{"id"}) {
		return false
	}
	if r.Bool("attested") {
		if _, ok := r["key"]; !ok {
			return false
		}
	}
	return true
}
