package model_test

import (
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

func TestResolveEndpoint(t *testing.T) {
	table := map[string]uint16{"on_off": 3, "42": 9}

	tests := []struct {
		name   string
		ref    string
		wantID uint16
		wantOK bool
	}{
		{"by name", "on_off", 3, true},
		{"unknown name", "missing", 0, false},
		{"numeric literal wins over a same-named key", "42", 42, true},
		{"numeric literal not in table", "7", 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := model.ResolveEndpoint(table, tt.ref)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ResolveEndpoint(%q) = (%d, %v), want (%d, %v)", tt.ref, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestModuleBase_NextNonce(t *testing.T) {
	m := &model.ModuleBase{}
	for want := uint16(0); want < 3; want++ {
		if got := m.NextNonce(); got != want {
			t.Fatalf("NextNonce() = %d, want %d", got, want)
		}
	}
	if m.Nonce != 3 {
		t.Errorf("Nonce = %d, want 3", m.Nonce)
	}
}

func TestModuleBase_SupportsEncryption(t *testing.T) {
	m := &model.ModuleBase{SupportedEncryptions: []model.Encryption{model.EncryptionAESGCM128}}
	if !m.SupportsEncryption(model.EncryptionAESGCM128) {
		t.Error("expected AES-GCM-128 to be supported")
	}
	if m.SupportsEncryption(model.EncryptionSpongent128) {
		t.Error("expected Spongent-128 to be unsupported")
	}
}

func TestModuleBase_CloneBase(t *testing.T) {
	m := &model.ModuleBase{
		Name:        "counter",
		Node:        "node-a",
		Deployed:    true,
		Attested:    true,
		Nonce:       5,
		ID:          12,
		Key:         []byte{1, 2, 3},
		DeployName:  "counter",
		Inputs:      map[string]uint16{"in": 0},
		Outputs:     map[string]uint16{"out": 1},
		Entrypoints: map[string]uint16{"entry": 2},
	}

	clone := m.CloneBase("counter_new")

	if clone.Deployed || clone.Attested {
		t.Error("clone should not be deployed or attested")
	}
	if clone.ID != 0 || clone.Key != nil || clone.Nonce != 0 {
		t.Error("clone should have its runtime identity cleared")
	}
	if clone.DeployName != "counter_new" {
		t.Errorf("DeployName = %q, want %q", clone.DeployName, "counter_new")
	}
	if clone.OldNode != "node-a" {
		t.Errorf("OldNode = %q, want %q", clone.OldNode, "node-a")
	}
	if clone.Inputs != nil || clone.Outputs != nil || clone.Entrypoints != nil {
		t.Error("clone should not carry over endpoint tables")
	}
	// original must be untouched
	if !m.Deployed || m.ID != 12 {
		t.Error("CloneBase must not mutate the receiver")
	}
}

func TestBackend_Valid(t *testing.T) {
	valid := []model.Backend{model.BackendSancus, model.BackendSGX, model.BackendNative, model.BackendTrustZone}
	for _, b := range valid {
		if !b.Valid() {
			t.Errorf("Backend(%q).Valid() = false, want true", b)
		}
	}
	if model.Backend("bogus").Valid() {
		t.Error("Backend(\"bogus\").Valid() = true, want false")
	}
}
