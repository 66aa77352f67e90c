package descriptor_test

import (
	"bytes"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
)

func TestRecord_StringBoolNumber(t *testing.T) {
	r := descriptor.Record{
		"name":     "node-a",
		"deployed": true,
		"port":     float64(8080), // JSON numbers decode as float64
	}
	if got := r.String("name"); got != "node-a" {
		t.Errorf("String(name) = %q, want node-a", got)
	}
	if got := r.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
	if !r.Bool("deployed") {
		t.Error("Bool(deployed) = false, want true")
	}
	if r.Bool("missing") {
		t.Error("Bool(missing) = true, want false")
	}
	if got := r.Uint16("port"); got != 8080 {
		t.Errorf("Uint16(port) = %d, want 8080", got)
	}
}

func TestRecord_IntPtr(t *testing.T) {
	r := descriptor.Record{"priority": 3}
	p := r.IntPtr("priority")
	if p == nil || *p != 3 {
		t.Fatalf("IntPtr(priority) = %v, want pointer to 3", p)
	}

	absent := descriptor.Record{}
	if got := absent.IntPtr("priority"); got != nil {
		t.Errorf("IntPtr(priority) on absent key = %v, want nil", got)
	}
}

func TestRecord_BytesRoundtrip(t *testing.T) {
	r := descriptor.Record{}
	key := []byte{0xde, 0xad, 0xbe, 0xef}

	r.SetBytes("key", key)
	got, err := r.Bytes("key")
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Errorf("Bytes roundtrip = %x, want %x", got, key)
	}
}

func TestRecord_Bytes_Empty(t *testing.T) {
	r := descriptor.Record{}
	got, err := r.Bytes("key")
	if err != nil || got != nil {
		t.Errorf("Bytes on absent key = (%x, %v), want (nil, nil)", got, err)
	}
}

func TestRecord_Bytes_InvalidHex(t *testing.T) {
	r := descriptor.Record{"key": "not-hex!"}
	if _, err := r.Bytes("key"); err == nil {
		t.Error("expected an error for invalid hex")
	}
}

func TestRecord_StringSlice(t *testing.T) {
	r := descriptor.Record{"cflags": []interface{}{"-O2", "-Wall"}}
	got := r.StringSlice("cflags")
	want := []string{"-O2", "-Wall"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("StringSlice(cflags) = %v, want %v", got, want)
	}
	if got := r.StringSlice("missing"); got != nil {
		t.Errorf("StringSlice(missing) = %v, want nil", got)
	}
}
