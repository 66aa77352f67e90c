package wire_test

import (
	"bytes"
	"net"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

func TestCommandMessage_Encode(t *testing.T) {
	msg := wire.CommandMessage{Code: wire.CmdCall, Payload: []byte{0x01, 0x02, 0x03}}
	got := msg.Encode()
	want := []byte{0x00, byte(wire.CmdCall), 0x00, 0x03, 0x01, 0x02, 0x03}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = %x, want %x", got, want)
	}
}

func TestReadReactiveResult(t *testing.T) {
	cases := []struct {
		name    string
		in      []byte
		wantErr bool
	}{
		{"ok empty", []byte{0x00, 0x00, 0x00, 0x00}, false},
		{"error with payload", []byte{0x00, 0x01, 0x00, 0x02, 0xAA, 0xBB}, false},
		{"truncated header", []byte{0x00}, true},
		{"truncated payload", []byte{0x00, 0x00, 0x00, 0x05, 0x01}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := wire.ReadReactiveResult(bytes.NewReader(tc.in))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadReactiveResult: %v", err)
			}
			_ = r
		})
	}
}

func TestPackConnect_IPv4(t *testing.T) {
	ip := net.ParseIP("10.0.0.5")
	got := wire.PackConnect(7, 3, true, 9000, ip)
	want := []byte{0x00, 0x07, 0x00, 0x03, 0x01, 0x23, 0x28, 10, 0, 0, 5}
	if !bytes.Equal(got, want) {
		t.Fatalf("PackConnect() = %x, want %x", got, want)
	}
}

func TestBuildSetKeyAD(t *testing.T) {
	ad := wire.BuildSetKeyAD(1, 2, 3, 4)
	want := []byte{1, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}
	if !bytes.Equal(ad, want) {
		t.Fatalf("BuildSetKeyAD() = %x, want %x", ad, want)
	}
}

func TestPackLoadSancus(t *testing.T) {
	got := wire.PackLoadSancus("mod", 0x0102, []byte{0xEF})
	want := append([]byte("mod\x00"), 0x01, 0x02, 0xEF)
	if !bytes.Equal(got, want) {
		t.Fatalf("PackLoadSancus() = %x, want %x", got, want)
	}
}

func TestUnpackSancusDeployResult(t *testing.T) {
	payload := []byte{0x00, 0x05, 0xAA, 0xBB, 0xCC}
	id, table, err := wire.UnpackSancusDeployResult(payload)
	if err != nil {
		t.Fatalf("UnpackSancusDeployResult: %v", err)
	}
	if id != 5 {
		t.Errorf("id = %d, want 5", id)
	}
	if !bytes.Equal(table, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("table = %x", table)
	}

	if _, _, err := wire.UnpackSancusDeployResult([]byte{0x01}); err == nil {
		t.Error("expected error for short payload")
	}
}
