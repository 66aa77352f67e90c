// Package sgx implements the Node driver for the Intel SGX backend: Load
// carries the SGXS image and its signature and the EM returns the assigned
// module id; remote attestation is a separate step (Attest) that runs an
// external attester binary against the node's aesmd.
package sgx

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/toolchain"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// Node is an SGX EM endpoint.
type Node struct {
	nodes.Common

	// AttesterBin is the external remote-attestation helper binary invoked
	// against this node's aesmd.
	AttesterBin string
}

// New creates an SGX node driver.
func New(base *model.NodeBase, attesterBin string) *Node {
	return &Node{Common: nodes.Common{Base_: base}, AttesterBin: attesterBin}
}

func (n *Node) deployAddr() string {
	return n.Base_.Addr(n.Base_.DeployPort)
}

// Deploy sends the SGXS+signature pair to the deploy port and returns the
// assigned module id. No symbol table is produced; SGX modules carry their
// endpoint tables from the codegen data manifest instead.
func (n *Node) Deploy(ctx context.Context, req nodes.DeployRequest) (uint16, []byte, error) {
	result, err := nodes.SendCommand(ctx, n.deployAddr(), wire.CommandMessage{
		Code:    wire.CmdLoad,
		Payload: wire.PackLoadSGX(req.Artefact, req.Signature),
	})
	if err != nil {
		return 0, nil, err
	}
	if len(result.Payload) < 2 {
		return 0, nil, &errs.WireError{Op: "sgx deploy", Message: "response too short"}
	}
	moduleID := binary.BigEndian.Uint16(result.Payload[0:2])
	return moduleID, nil, nil
}

// Attest runs the external remote-attestation helper against the node's
// aesmd host/port and returns the sealed attestation quote bytes, which the
// caller (attestation orchestration) forwards to the manager. They are not
// verified locally: without a configured manager SGX attestation fails.
func (n *Node) Attest(ctx context.Context, moduleID uint16) ([]byte, error) {
	out, err := toolchain.Run(ctx, "", n.AttesterBin,
		"--aesm-host", n.Base_.AESMHost,
		"--aesm-port", fmt.Sprintf("%d", n.Base_.AESMPort),
		"--module-id", fmt.Sprintf("%d", moduleID))
	if err != nil {
		return nil, err
	}
	return out, nil
}
