// Package sancus implements the Node driver for the Sancus/MSP430-class
// backend: Load carries the module's name, the node's vendor id and the
// linked ELF over the deploy port; the response carries the assigned
// module id and the ELF's exported symbol table.
package sancus

import (
	"context"
	"sync"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// Node is a Sancus EM endpoint. The backend's EM cannot multiplex commands,
// so every exported method serializes on mu in addition to whatever
// orchestrator-level "in_order" serialization the caller applies.
type Node struct {
	nodes.Common

	mu sync.Mutex
}

// New creates a Sancus node driver.
func New(base *model.NodeBase) *Node {
	base.SerializationLock = true
	return &Node{Common: nodes.Common{Base_: base}}
}

func (n *Node) deployAddr() string {
	return n.Base_.Addr(n.Base_.DeployPort)
}

// Deploy sends the module name, vendor id and linked ELF to the deploy
// port and parses back the assigned module id and symbol table.
func (n *Node) Deploy(ctx context.Context, req nodes.DeployRequest) (uint16, []byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	result, err := nodes.SendCommand(ctx, n.deployAddr(), wire.CommandMessage{
		Code:    wire.CmdLoad,
		Payload: wire.PackLoadSancus(req.ModuleName, n.Base_.VendorID, req.Artefact),
	})
	if err != nil {
		return 0, nil, err
	}
	return wire.UnpackSancusDeployResult(result.Payload)
}

func (n *Node) SetKey(ctx context.Context, moduleID uint16, arg []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Common.SetKey(ctx, moduleID, arg)
}

func (n *Node) Call(ctx context.Context, moduleID, entryID uint16, arg []byte) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Common.Call(ctx, moduleID, entryID, arg)
}

func (n *Node) DisableModule(ctx context.Context, moduleID uint16, nonce uint16, sealed []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Common.DisableModule(ctx, moduleID, nonce, sealed)
}

func (n *Node) Reset(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Common.Reset(ctx)
}
