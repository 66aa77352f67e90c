package model_test

import (
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

func TestConnection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       model.Connection
		wantErr bool
	}{
		{
			name: "valid non-direct output connection",
			c: model.Connection{
				Name: "c1", FromModule: "a", FromOutput: "out", ToModule: "b", ToInput: "in",
			},
		},
		{
			name: "valid direct request connection",
			c: model.Connection{
				Name: "c2", FromRequest: "req", Direct: true, ToModule: "b", ToHandler: "handler",
			},
		},
		{
			name:    "from equals to",
			c:       model.Connection{Name: "c3", FromModule: "a", FromOutput: "out", ToModule: "a", ToInput: "in"},
			wantErr: true,
		},
		{
			name:    "both from_output and from_request set",
			c:       model.Connection{Name: "c4", FromModule: "a", FromOutput: "out", FromRequest: "req", ToModule: "b", ToInput: "in"},
			wantErr: true,
		},
		{
			name:    "neither from_output nor from_request set",
			c:       model.Connection{Name: "c5", FromModule: "a", ToModule: "b", ToInput: "in"},
			wantErr: true,
		},
		{
			name:    "direct connection sets from_module",
			c:       model.Connection{Name: "c6", FromModule: "a", FromOutput: "out", Direct: true, ToModule: "b", ToInput: "in"},
			wantErr: true,
		},
		{
			name:    "non-direct connection missing from_module",
			c:       model.Connection{Name: "c7", FromOutput: "out", ToModule: "b", ToInput: "in"},
			wantErr: true,
		},
		{
			name:    "both to_input and to_handler set",
			c:       model.Connection{Name: "c8", FromModule: "a", FromOutput: "out", ToModule: "b", ToInput: "in", ToHandler: "h"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnection_IsRequest(t *testing.T) {
	output := model.Connection{ToInput: "in"}
	if output.IsRequest() {
		t.Error("connection with ToInput set should not be a request connection")
	}
	request := model.Connection{ToHandler: "handler"}
	if !request.IsRequest() {
		t.Error("connection with ToHandler set should be a request connection")
	}
}

func TestConnection_AdvanceNonce(t *testing.T) {
	c := &model.Connection{}

	n := c.AdvanceNonce(1)
	if n != 0 || c.Nonce != 1 {
		t.Fatalf("after first Output advance: returned=%d, Nonce=%d, want 0, 1", n, c.Nonce)
	}

	n = c.AdvanceNonce(2)
	if n != 1 || c.Nonce != 3 {
		t.Fatalf("after Request advance: returned=%d, Nonce=%d, want 1, 3", n, c.Nonce)
	}
}
