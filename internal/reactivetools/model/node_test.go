package model_test

import (
	"net"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

func TestNodeBase_AllocModuleID(t *testing.T) {
	n := &model.NodeBase{}
	for want := uint16(1); want < 4; want++ {
		if got := n.AllocModuleID(); got != want {
			t.Fatalf("AllocModuleID() = %d, want %d", got, want)
		}
	}
}

func TestNodeBase_AllocModuleID_NeverReturnsZero(t *testing.T) {
	n := &model.NodeBase{NextModuleID: 0}
	if id := n.AllocModuleID(); id == 0 {
		t.Error("AllocModuleID() must never hand out id 0")
	}
}

func TestNodeBase_Addr(t *testing.T) {
	n := &model.NodeBase{IPAddress: net.ParseIP("192.168.1.10"), ReactivePort: 8080}
	want := "192.168.1.10:8080"
	if got := n.Addr(n.ReactivePort); got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}

func TestManagerConfig_SPPubKeyCache(t *testing.T) {
	var mc model.ManagerConfig

	if _, ok := mc.CachedSPPubKey(); ok {
		t.Error("cache should be empty before any Set call")
	}

	key := []byte{0xde, 0xad, 0xbe, 0xef}
	mc.SetSPPubKeyCache(key)

	got, ok := mc.CachedSPPubKey()
	if !ok {
		t.Fatal("expected cache hit after SetSPPubKeyCache")
	}
	if string(got) != string(key) {
		t.Errorf("cached key = %x, want %x", got, key)
	}
}

func TestManagerConfig_Enabled(t *testing.T) {
	var nilConfig *model.ManagerConfig
	if nilConfig.Enabled() {
		t.Error("nil *ManagerConfig should report disabled")
	}
	disabled := &model.ManagerConfig{}
	if disabled.Enabled() {
		t.Error("ManagerConfig with empty ConfigPath should report disabled")
	}
	enabled := &model.ManagerConfig{ConfigPath: "./manager.yaml"}
	if !enabled.Enabled() {
		t.Error("ManagerConfig with a ConfigPath should report enabled")
	}
}
