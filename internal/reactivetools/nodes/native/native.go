// Package native implements the Node driver for the no-TEE backend: Load
// carries the built binary directly; the EM execs it as a child process
// and returns the assigned module id with no symbol table or attestation
// step.
package native

import (
	"context"
	"encoding/binary"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// Node is a Native (no-TEE) EM endpoint.
type Node struct {
	nodes.Common
}

// New creates a Native node driver.
func New(base *model.NodeBase) *Node {
	return &Node{Common: nodes.Common{Base_: base}}
}

func (n *Node) deployAddr() string {
	return n.Base_.Addr(n.Base_.DeployPort)
}

// Deploy sends the built binary to the deploy port and returns the
// assigned module id.
func (n *Node) Deploy(ctx context.Context, req nodes.DeployRequest) (uint16, []byte, error) {
	result, err := nodes.SendCommand(ctx, n.deployAddr(), wire.CommandMessage{
		Code:    wire.CmdLoad,
		Payload: wire.PackLoadNative(req.Artefact),
	})
	if err != nil {
		return 0, nil, err
	}
	if len(result.Payload) < 2 {
		return 0, nil, &errs.WireError{Op: "native deploy", Message: "response too short"}
	}
	return binary.BigEndian.Uint16(result.Payload[0:2]), nil, nil
}
