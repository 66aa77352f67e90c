package orchestrator

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/crypto"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
)

// Call invokes an entrypoint on a module directly, bypassing the connection
// machinery: module_id/entry_id are resolved from the descriptor, arg is
// sent unencrypted as the wire protocol itself requires no sealing for a
// direct Call (only SetKey/Disable/output/request payloads are sealed).
func (rt *Runtime) Call(ctx context.Context, moduleName, entryName string, arg []byte) ([]byte, error) {
	m, err := rt.module(moduleName)
	if err != nil {
		return nil, err
	}
	base := m.Base()
	if !base.Attested {
		return nil, &errs.PreconditionViolationError{Op: "call", Entity: moduleName, Reason: "module must be attested first"}
	}
	entryID, ok := base.GetEntryID(entryName)
	if !ok {
		return nil, fmt.Errorf("orchestrator: module %q has no entry %q", moduleName, entryName)
	}
	node, err := rt.node(base.Node)
	if err != nil {
		return nil, err
	}
	return node.Call(ctx, base.ID, entryID, arg)
}

// Output sends arg to connection name's to-side as a sealed RemoteOutput,
// sealing under the connection key with the current nonce as AD, then
// advances the nonce by one on success.
func (rt *Runtime) Output(ctx context.Context, connName string, arg []byte) error {
	c, err := rt.findConnection(connName)
	if err != nil {
		return err
	}
	if !c.Established {
		return &errs.PreconditionViolationError{Op: "output", Entity: connName, Reason: "connection must be established first"}
	}

	to, err := rt.resolveToEndpoint(c)
	if err != nil {
		return err
	}
	suite, err := crypto.ForEncryption(crypto.Encryption(c.Encryption))
	if err != nil {
		return err
	}

	nonce := c.Nonce
	sealed, err := suite.Seal(c.Key, nonceAD(nonce), arg)
	if err != nil {
		return fmt.Errorf("orchestrator: seal output on %q: %w", connName, err)
	}
	if err := to.Node.Output(ctx, to.Module.ID, c.ID, sealed); err != nil {
		return err
	}
	c.AdvanceNonce(1)
	return nil
}

// Request sends arg to connection name's to-side as a sealed RemoteRequest
// and returns the decrypted response. The request seals under nonce; per
// the wire protocol the response is bound to nonce+1 instead, and the
// connection's nonce advances by two on success.
func (rt *Runtime) Request(ctx context.Context, connName string, arg []byte) ([]byte, error) {
	c, err := rt.findConnection(connName)
	if err != nil {
		return nil, err
	}
	if !c.Established {
		return nil, &errs.PreconditionViolationError{Op: "request", Entity: connName, Reason: "connection must be established first"}
	}

	to, err := rt.resolveToEndpoint(c)
	if err != nil {
		return nil, err
	}
	suite, err := crypto.ForEncryption(crypto.Encryption(c.Encryption))
	if err != nil {
		return nil, err
	}

	nonce := c.Nonce
	sealed, err := suite.Seal(c.Key, nonceAD(nonce), arg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: seal request on %q: %w", connName, err)
	}
	resp, err := to.Node.Request(ctx, to.Module.ID, c.ID, sealed)
	if err != nil {
		return nil, err
	}
	c.AdvanceNonce(2)
	plain, err := suite.Open(c.Key, nonceAD(nonce+1), resp)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open response on %q: %w", connName, err)
	}
	return plain, nil
}

func nonceAD(nonce uint16) []byte {
	ad := make([]byte, 2)
	binary.BigEndian.PutUint16(ad, nonce)
	return ad
}

// DisableModule seals and sends the Disable entrypoint on moduleName,
// disabling it on its node and marking deployed/attested false so it no
// longer accepts further operations.
func (rt *Runtime) DisableModule(ctx context.Context, moduleName string) error {
	m, err := rt.module(moduleName)
	if err != nil {
		return err
	}
	base := m.Base()
	if !base.Attested {
		return &errs.PreconditionViolationError{Op: "disable", Entity: moduleName, Reason: "module must be attested first"}
	}
	node, err := rt.node(base.Node)
	if err != nil {
		return err
	}
	if err := rt.disableOnNode(ctx, node, base); err != nil {
		return err
	}
	rt.persistModule(moduleName)
	return nil
}

func (rt *Runtime) disableOnNode(ctx context.Context, node nodes.Node, base *model.ModuleBase) error {
	suite, err := crypto.ForEncryption(crypto.Encryption(base.Encryption))
	if err != nil {
		return err
	}
	nonce := base.Nonce
	sealed, err := suite.Seal(base.Key, nonceAD(nonce), nonceAD(nonce))
	if err != nil {
		return fmt.Errorf("orchestrator: seal disable for %q: %w", base.Name, err)
	}
	if err := node.DisableModule(ctx, base.ID, nonce, sealed); err != nil {
		return err
	}
	base.NextNonce()
	base.Deployed = false
	base.Attested = false
	return nil
}

// Reset issues an unconditional Reset to nodeName, returning its EM to the
// empty state; the descriptor is left untouched since a reset is a node-side
// operation with no model-level state to persist.
func (rt *Runtime) Reset(ctx context.Context, nodeName string) error {
	node, err := rt.node(nodeName)
	if err != nil {
		return err
	}
	return node.Reset(ctx)
}
