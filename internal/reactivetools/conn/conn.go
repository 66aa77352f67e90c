// Package conn establishes connections between deployed, attested modules:
// sealing a fresh connection key to each endpoint with SetKey, then telling
// the from-side EM to open the transport with Connect.
package conn

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/crypto"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// Endpoint bundles the node and module a connection side resolves to,
// along with the io/handler id the wire protocol needs.
type Endpoint struct {
	Node   nodes.Node
	Module *model.ModuleBase
	IOID   uint16
}

// Establish seals a new random connection key to the to-side with SetKey,
// and — for non-direct connections — to the from-side too, then issues
// Connect on the from-side EM so it can route outputs. A direct connection
// (from is nil) has no from-side EM to command; the orchestrator itself
// plays that role when it later calls Output/Request. Completing
// requires the to-module, and the from-module when present, to already
// be attested.
func Establish(ctx context.Context, c *model.Connection, from *Endpoint, to Endpoint) error {
	if c.Established {
		return &errs.PreconditionViolationError{Op: "connect", Entity: c.Name, Reason: "already established"}
	}
	if !to.Module.Attested {
		return &errs.PreconditionViolationError{Op: "connect", Entity: c.Name, Reason: "to-module must be attested first"}
	}
	if from != nil && !from.Module.Attested {
		return &errs.PreconditionViolationError{Op: "connect", Entity: c.Name, Reason: "from-module must be attested first"}
	}

	suite, err := crypto.ForEncryption(crypto.Encryption(c.Encryption))
	if err != nil {
		return fmt.Errorf("conn: %w", err)
	}

	key := make([]byte, crypto.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("conn: generate connection key: %w", err)
	}

	if err := sealKey(ctx, to.Node, to.Module, to.IOID, c, suite, key); err != nil {
		return fmt.Errorf("conn: set key on to-side: %w", err)
	}

	if from != nil {
		if err := sealKey(ctx, from.Node, from.Module, from.IOID, c, suite, key); err != nil {
			return fmt.Errorf("conn: set key on from-side: %w", err)
		}
		isLocal := from.Module.Node == to.Module.Node
		toBase := to.Node.Base()
		if err := from.Node.Connect(ctx, c.ID, to.Module.ID, isLocal, toBase.ReactivePort, toBase.IPAddress); err != nil {
			return fmt.Errorf("conn: connect: %w", err)
		}
	}

	c.Key = key
	c.Nonce = 0
	c.Established = true
	return nil
}

func sealKey(ctx context.Context, node nodes.Node, module *model.ModuleBase, ioID uint16, c *model.Connection, suite crypto.AEAD, key []byte) error {
	nonce := module.Nonce
	ad := wire.BuildSetKeyAD(uint8(c.Encryption), c.ID, ioID, nonce)
	sealed, err := suite.Seal(module.Key, ad, key)
	if err != nil {
		return err
	}
	arg := wire.PackSetKeyArg(ad, sealed)
	if err := node.SetKey(ctx, module.ID, arg); err != nil {
		return err
	}
	module.NextNonce()
	return nil
}

// RegisterPeriodicEvent tells the owning module's EM to invoke the given
// entrypoint every FrequencyMs milliseconds.
func RegisterPeriodicEvent(ctx context.Context, ev *model.PeriodicEvent, node nodes.Node, module *model.ModuleBase, entryID uint16) error {
	if ev.Established {
		return &errs.PreconditionViolationError{Op: "register", Entity: ev.Name, Reason: "already established"}
	}
	if !module.Attested {
		return &errs.PreconditionViolationError{Op: "register", Entity: ev.Name, Reason: "module must be attested first"}
	}
	if err := node.RegisterEntrypoint(ctx, module.ID, entryID, ev.FrequencyMs); err != nil {
		return fmt.Errorf("conn: register entrypoint: %w", err)
	}
	ev.Established = true
	return nil
}
