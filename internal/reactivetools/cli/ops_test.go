// White-box tests for the unexported arg/result helpers shared by
// call/output/request.
package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeArg(t *testing.T) {
	tests := []struct {
		name    string
		hexArg  string
		want    string
		wantErr bool
	}{
		{"empty string decodes to nil", "", "", false},
		{"valid hex", "cafe0001", "\xca\xfe\x00\x01", false},
		{"invalid hex", "not-hex", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeArg(tt.hexArg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeArg(%q) error = %v, wantErr %v", tt.hexArg, err, tt.wantErr)
			}
			if err == nil && string(got) != tt.want {
				t.Errorf("decodeArg(%q) = %q, want %q", tt.hexArg, got, tt.want)
			}
		})
	}
}

func TestWriteResult_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	if err := writeResult(path, data); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("file contents = %x, want %x", got, data)
	}
}

func TestWriteResult_NoPathPrintsToStdout(t *testing.T) {
	if err := writeResult("", []byte{1, 2, 3}); err != nil {
		t.Fatalf("writeResult with empty path should just print: %v", err)
	}
}
