// Package nodes implements the EM-facing half of the wire protocol: dialing
// a node's reactive/deploy ports, sending CommandMessage frames, and
// reading back ReactiveResult frames. The shared Node interface is
// implemented once per backend (sancus, sgx, native, trustzone); this file
// holds only the parts common to all four.
package nodes

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// DialTimeout bounds how long a command's TCP dial may take.
const DialTimeout = 10 * time.Second

// DeployRequest is the backend-agnostic Load command input. The
// orchestrator fills in whichever fields the target module's backend
// needs; unused fields are left zero.
type DeployRequest struct {
	ModuleID   uint16 // pre-assigned id, used by backends whose Load payload carries it (TrustZone)
	ModuleName string // Sancus: substituted into the Load payload's name field
	UUID       [16]byte // TrustZone: the TA's identity
	Artefact   []byte   // the primary built payload (ELF, SGXS, binary, TA image)
	Signature  []byte   // SGX: the sgxs-sign output, sent alongside Artefact
}

// Node is the shared behavioral trait every backend's EM driver implements
// as a tagged union with a shared behavioral trait. Each method
// corresponds 1:1 to a wire command.
type Node interface {
	Base() *model.NodeBase

	// Deploy sends the backend-specific Load command. Each backend reads
	// only the DeployRequest fields its wire layout needs (Sancus:
	// ModuleName, Artefact, plus the node's own VendorID; SGX: Artefact, Signature; Native: Artefact;
	// TrustZone: ModuleID, UUID, Artefact) and returns the on-node module
	// id plus, for Sancus, the ELF symbol table used to resolve endpoints
	// post-deploy.
	Deploy(ctx context.Context, req DeployRequest) (moduleID uint16, symbolTable []byte, err error)

	// SetKey installs a connection key into a module's input/output slot.
	SetKey(ctx context.Context, moduleID uint16, arg []byte) error

	// Call invokes an entrypoint on a module, returning any response bytes.
	Call(ctx context.Context, moduleID, entryID uint16, arg []byte) ([]byte, error)

	// RegisterEntrypoint schedules a periodic entrypoint invocation.
	RegisterEntrypoint(ctx context.Context, moduleID, entryID uint16, freqMs uint32) error

	// Connect tells this node's EM to open an outbound connection to
	// another node for a given connection id.
	Connect(ctx context.Context, connID, toModuleID uint16, isLocal bool, toPort uint16, toIP net.IP) error

	// Output delivers a RemoteOutput frame (fire-and-forget).
	Output(ctx context.Context, toModuleID, connID uint16, sealed []byte) error

	// Request delivers a RemoteRequest frame and waits for the reply.
	Request(ctx context.Context, toModuleID, connID uint16, sealed []byte) ([]byte, error)

	// DisableModule sends a Disable entrypoint call, sealed with the
	// module's key over the given nonce.
	DisableModule(ctx context.Context, moduleID uint16, nonce uint16, sealed []byte) error

	// Reset clears all modules and connections from the node's EM.
	Reset(ctx context.Context) error
}

// SendCommand dials addr, writes msg, and reads back one ReactiveResult. A
// non-Ok result code is surfaced as an *errs.WireError.
func SendCommand(ctx context.Context, addr string, msg wire.CommandMessage) (wire.ReactiveResult, error) {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return wire.ReactiveResult{}, fmt.Errorf("nodes: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := msg.WriteTo(conn); err != nil {
		return wire.ReactiveResult{}, fmt.Errorf("nodes: write command to %s: %w", addr, err)
	}

	result, err := wire.ReadReactiveResult(conn)
	if err != nil {
		return wire.ReactiveResult{}, fmt.Errorf("nodes: read result from %s: %w", addr, err)
	}
	if result.Code != wire.Ok {
		return result, &errs.WireError{
			Op:   fmt.Sprintf("command %d to %s", msg.Code, addr),
			Code: uint16(result.Code),
		}
	}
	return result, nil
}
