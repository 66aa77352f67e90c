// Package trustzone implements the Node driver for the ARM TrustZone
// backend: Load carries the pre-assigned module id, the TA's UUID and its
// built image; attestation is a challenge/response exchange run over the
// same reactive port rather than a separate quoting service.
package trustzone

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/crypto"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// Node is a TrustZone EM endpoint.
type Node struct {
	nodes.Common
}

// New creates a TrustZone node driver.
func New(base *model.NodeBase) *Node {
	return &Node{Common: nodes.Common{Base_: base}}
}

func (n *Node) deployAddr() string {
	return n.Base_.Addr(n.Base_.DeployPort)
}

// Deploy sends the module id, TA UUID and built image to the deploy port.
// The EM echoes the module id back on success; a mismatch is a wire error.
func (n *Node) Deploy(ctx context.Context, req nodes.DeployRequest) (uint16, []byte, error) {
	result, err := nodes.SendCommand(ctx, n.deployAddr(), wire.CommandMessage{
		Code:    wire.CmdLoad,
		Payload: wire.PackLoadTrustZone(req.ModuleID, req.UUID, req.Artefact),
	})
	if err != nil {
		return 0, nil, err
	}
	if len(result.Payload) < 2 {
		return 0, nil, &errs.WireError{Op: "trustzone deploy", Message: "response too short"}
	}
	echoed := binary.BigEndian.Uint16(result.Payload[0:2])
	if echoed != req.ModuleID {
		return 0, nil, &errs.WireError{Op: "trustzone deploy", Message: "module id mismatch"}
	}
	return echoed, nil, nil
}

// Attest performs a nonce challenge/response with the module's Attest
// entrypoint: a fresh random nonce is sent as the Call argument, and the
// module's AES-CMAC response over that nonce (keyed by the module's
// derived key) is verified locally.
func (n *Node) Attest(ctx context.Context, moduleID uint16, moduleKey []byte) error {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("trustzone: generate attestation nonce: %w", err)
	}

	response, err := n.Call(ctx, moduleID, uint16(wire.EntryAttest), nonce)
	if err != nil {
		return fmt.Errorf("trustzone: attest call: %w", err)
	}

	if !crypto.VerifyAESCMAC(moduleKey, nonce, response) {
		return &errs.CryptoMismatchError{Module: fmt.Sprintf("id=%d", moduleID)}
	}
	return nil
}
