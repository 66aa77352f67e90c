package descriptor

import (
	"net"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

// connectionToRecord and recordToConnection translate between the fixed
// Connection schema and the generic Record map the codec round-trips.
// Unlike nodes/modules, connections have no per-backend variation, but are
// still kept as Records at the file boundary so one load/dump path serves
// every entity kind uniformly.

// ConnectionRecord projects a Connection into the generic Record shape the
// rules engine validates against.
func ConnectionRecord(c *model.Connection) Record { return connectionToRecord(c) }

// EventRecord projects a PeriodicEvent into the generic Record shape the
// rules engine validates against.
func EventRecord(e *model.PeriodicEvent) Record { return eventToRecord(e) }

// ManagerConfig extracts cfg's manager configuration, or nil if the
// descriptor has no manager section (attestation runs entirely locally).
func ManagerConfig(cfg *Config) (*model.ManagerConfig, error) { return recordToManager(cfg.Manager) }

func connectionToRecord(c *model.Connection) Record {
	r := Record{
		"id":          c.ID,
		"name":        c.Name,
		"encryption":  uint16(c.Encryption),
		"nonce":       c.Nonce,
		"direct":      c.Direct,
		"established": c.Established,
	}
	if c.FromModule != "" {
		r["from_module"] = c.FromModule
	}
	if c.FromOutput != "" {
		r["from_output"] = c.FromOutput
	}
	if c.FromRequest != "" {
		r["from_request"] = c.FromRequest
	}
	r["to_module"] = c.ToModule
	if c.ToInput != "" {
		r["to_input"] = c.ToInput
	}
	if c.ToHandler != "" {
		r["to_handler"] = c.ToHandler
	}
	r.SetBytes("key", c.Key)
	return r
}

func recordToConnection(r Record) (*model.Connection, error) {
	key, err := r.Bytes("key")
	if err != nil {
		return nil, err
	}
	return &model.Connection{
		ID:          r.Uint16("id"),
		Name:        r.String("name"),
		FromModule:  r.String("from_module"),
		FromOutput:  r.String("from_output"),
		FromRequest: r.String("from_request"),
		ToModule:    r.String("to_module"),
		ToInput:     r.String("to_input"),
		ToHandler:   r.String("to_handler"),
		Encryption:  model.Encryption(r.Uint16("encryption")),
		Key:         key,
		Nonce:       r.Uint16("nonce"),
		Direct:      r.Bool("direct"),
		Established: r.Bool("established"),
	}, nil
}

func eventToRecord(e *model.PeriodicEvent) Record {
	return Record{
		"id":           e.ID,
		"name":         e.Name,
		"module":       e.Module,
		"entry":        e.Entry,
		"frequency_ms": e.FrequencyMs,
		"established":  e.Established,
	}
}

func recordToEvent(r Record) *model.PeriodicEvent {
	return &model.PeriodicEvent{
		ID:          r.Uint16("id"),
		Name:        r.String("name"),
		Module:      r.String("module"),
		Entry:       r.String("entry"),
		FrequencyMs: r.Uint32("frequency_ms"),
		Established: r.Bool("established"),
	}
}

func managerToRecord(m *model.ManagerConfig) Record {
	if m == nil || !m.Enabled() {
		return nil
	}
	r := Record{
		"config_path": m.ConfigPath,
		"host":        m.Host,
		"port":        m.Port,
	}
	r.SetBytes("key", m.Key)
	return r
}

func recordToManager(r Record) (*model.ManagerConfig, error) {
	if r == nil {
		return nil, nil
	}
	key, err := r.Bytes("key")
	if err != nil {
		return nil, err
	}
	return &model.ManagerConfig{
		ConfigPath: r.String("config_path"),
		Host:       r.String("host"),
		Port:       r.Uint16("port"),
		Key:        key,
	}, nil
}

// nodeBaseFromRecord and nodeBaseToRecord cover the fields every backend's
// NodeBase shares; backend-specific factories (in the orchestrator's node
// construction) pull their extra fields from the Record directly.

// NodeBaseFromRecord decodes the fields every backend's NodeBase shares;
// backend factories additionally pull their own extra fields from r.
func NodeBaseFromRecord(r Record) model.NodeBase { return nodeBaseFromRecord(r) }

// MergeNodeBase writes n's shared fields back into r in place, preserving
// whatever backend-specific extra keys r already carries.
func MergeNodeBase(r Record, n *model.NodeBase) {
	for k, v := range nodeBaseToRecord(n) {
		r[k] = v
	}
}

// ModuleBaseFromRecord decodes the fields every backend's ModuleBase
// shares; backend factories additionally pull their own extra fields from r.
func ModuleBaseFromRecord(r Record) (model.ModuleBase, error) { return moduleBaseFromRecord(r) }

// MergeModuleBase writes m's shared fields back into r in place, preserving
// whatever backend-specific extra keys r already carries.
func MergeModuleBase(r Record, m *model.ModuleBase) {
	for k, v := range moduleBaseToRecord(m) {
		r[k] = v
	}
}

func nodeBaseFromRecord(r Record) model.NodeBase {
	return model.NodeBase{
		Name:         r.String("name"),
		IPAddress:    resolveIP(r.String("ip_address")),
		ReactivePort: r.Uint16("reactive_port"),
		DeployPort:   r.Uint16("deploy_port"),
		Backend:      model.Backend(r.String("backend")),
		NextModuleID: r.Uint16("next_module_id"),
	}
}

// resolveIP accepts either a literal IPv4/IPv6 address or a hostname, returning nil if addr is
// empty or cannot be resolved.
func resolveIP(addr string) net.IP {
	if addr == "" {
		return nil
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip
	}
	ipaddr, err := net.ResolveIPAddr("ip", addr)
	if err != nil {
		return nil
	}
	return ipaddr.IP
}

func nodeBaseToRecord(n *model.NodeBase) Record {
	r := Record{
		"name":           n.Name,
		"reactive_port":  n.ReactivePort,
		"deploy_port":    n.DeployPort,
		"backend":        string(n.Backend),
		"next_module_id": n.NextModuleID,
	}
	if n.IPAddress != nil {
		r["ip_address"] = n.IPAddress.String()
	}
	return r
}

// moduleBaseFromRecord and moduleBaseToRecord mirror nodeBase* for the
// fields every backend's ModuleBase shares.

func moduleBaseFromRecord(r Record) (model.ModuleBase, error) {
	key, err := r.Bytes("key")
	if err != nil {
		return model.ModuleBase{}, err
	}
	return model.ModuleBase{
		Name:       r.String("name"),
		Node:       r.String("node"),
		OldNode:    r.String("old_node"),
		Deployed:   r.Bool("deployed"),
		Attested:   r.Bool("attested"),
		Priority:   r.IntPtr("priority"),
		Nonce:      r.Uint16("nonce"),
		Backend:    model.Backend(r.String("backend")),
		ID:         r.Uint16("id"),
		Key:        key,
		DeployName: r.String("deploy_name"),
		Encryption: model.Encryption(r.Uint16("encryption")),
	}, nil
}

func moduleBaseToRecord(m *model.ModuleBase) Record {
	r := Record{
		"name":        m.Name,
		"node":        m.Node,
		"old_node":    m.OldNode,
		"deployed":    m.Deployed,
		"attested":    m.Attested,
		"nonce":       m.Nonce,
		"backend":     string(m.Backend),
		"id":          m.ID,
		"deploy_name": m.DeployName,
		"encryption":  uint16(m.Encryption),
	}
	if m.Priority != nil {
		r["priority"] = *m.Priority
	}
	r.SetBytes("key", m.Key)
	return r
}
