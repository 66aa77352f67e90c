package descriptor_test

import (
	"net"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

func TestNodeBaseRecordRoundtrip(t *testing.T) {
	r := descriptor.Record{
		"name":           "node-a",
		"ip_address":     "10.0.0.5",
		"reactive_port":  8080,
		"deploy_port":    8081,
		"backend":        "sancus",
		"next_module_id": 4,
	}

	base := descriptor.NodeBaseFromRecord(r)
	if base.Name != "node-a" || base.Backend != model.BackendSancus || base.NextModuleID != 4 {
		t.Fatalf("decoded NodeBase = %+v", base)
	}
	if !base.IPAddress.Equal(net.ParseIP("10.0.0.5")) {
		t.Errorf("IPAddress = %v, want 10.0.0.5", base.IPAddress)
	}

	base.NextModuleID = 9
	descriptor.MergeNodeBase(r, &base)
	if r.Uint16("next_module_id") != 9 {
		t.Errorf("after MergeNodeBase, next_module_id = %d, want 9", r.Uint16("next_module_id"))
	}
	// backend-specific extra fields untouched by MergeNodeBase must survive.
	r["vendor_id"] = 7
	descriptor.MergeNodeBase(r, &base)
	if r.Uint16("vendor_id") != 7 {
		t.Error("MergeNodeBase must not clobber backend-specific extra fields")
	}
}

func TestModuleBaseRecordRoundtrip(t *testing.T) {
	r := descriptor.Record{
		"name":     "counter",
		"node":     "node-a",
		"backend":  "nosgx",
		"deployed": true,
		"attested": true,
		"id":       3,
		"key":      "deadbeef",
	}

	base, err := descriptor.ModuleBaseFromRecord(r)
	if err != nil {
		t.Fatalf("ModuleBaseFromRecord: %v", err)
	}
	if base.Name != "counter" || !base.Deployed || !base.Attested || base.ID != 3 {
		t.Fatalf("decoded ModuleBase = %+v", base)
	}
	if len(base.Key) != 4 {
		t.Errorf("Key = %x, want 4 bytes", base.Key)
	}

	base.Attested = false
	descriptor.MergeModuleBase(r, &base)
	if r.Bool("attested") {
		t.Error("after MergeModuleBase, attested should be false")
	}
}

func TestConnectionRecordRoundtrip(t *testing.T) {
	c := &model.Connection{
		ID:         5,
		Name:       "c1",
		FromModule: "a",
		FromOutput: "out",
		ToModule:   "b",
		ToInput:    "in",
		Key:        []byte{1, 2, 3, 4},
	}

	r := descriptor.ConnectionRecord(c)
	if r.String("name") != "c1" || r.Uint16("id") != 5 {
		t.Fatalf("ConnectionRecord = %+v", r)
	}
	if got, err := r.Bytes("key"); err != nil || len(got) != 4 {
		t.Errorf("Bytes(key) = (%x, %v)", got, err)
	}
}

func TestEventRecordRoundtrip(t *testing.T) {
	e := &model.PeriodicEvent{ID: 2, Name: "tick", Module: "counter", Entry: "on_tick", FrequencyMs: 1000}
	r := descriptor.EventRecord(e)
	if r.String("name") != "tick" || r.Uint32("frequency_ms") != 1000 {
		t.Fatalf("EventRecord = %+v", r)
	}
}

func TestManagerConfigFromRecord(t *testing.T) {
	cfg := &descriptor.Config{Manager: descriptor.Record{
		"host": "manager.local",
		"port": 9000,
		"key":  "aabbccdd",
	}}

	mgr, err := descriptor.ManagerConfig(cfg)
	if err != nil {
		t.Fatalf("ManagerConfig: %v", err)
	}
	if mgr.Host != "manager.local" || mgr.Port != 9000 {
		t.Fatalf("ManagerConfig = %+v", mgr)
	}
}

func TestManagerConfig_NoManagerSection(t *testing.T) {
	cfg := &descriptor.Config{}
	mgr, err := descriptor.ManagerConfig(cfg)
	if err != nil {
		t.Fatalf("ManagerConfig: %v", err)
	}
	if mgr != nil {
		t.Errorf("ManagerConfig = %+v, want nil for a descriptor with no manager section", mgr)
	}
}
