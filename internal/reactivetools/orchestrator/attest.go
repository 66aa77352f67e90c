package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/manager"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/native"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/sancus"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/sgx"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/trustzone"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	sgxnode "github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes/sgx"
	trustzonenode "github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes/trustzone"
)

// Attest implements the same priority-then-fan-out policy as Deploy, but
// against the set of modules not yet attested.
func (rt *Runtime) Attest(ctx context.Context, inOrder bool, only string) error {
	priority, rest := rt.splitByPriority(rt.targetModules(only))
	if err := fanOut(ctx, priority, true, rt.attestOne); err != nil {
		return err
	}
	return fanOut(ctx, rest, inOrder, rt.attestOne)
}

func (rt *Runtime) attestOne(ctx context.Context, name string) error {
	m, err := rt.module(name)
	if err != nil {
		return err
	}
	base := m.Base()
	if base.Attested {
		return nil
	}
	if !base.Deployed {
		return &errs.PreconditionViolationError{Op: "attest", Entity: name, Reason: "module must be deployed first"}
	}

	node, err := rt.node(base.Node)
	if err != nil {
		return err
	}

	key, err := rt.deriveModuleKey(ctx, name, m, node)
	if err != nil {
		return err
	}
	base.Key = key
	base.Attested = true

	rt.persistModule(name)
	return nil
}

// deriveModuleKey runs the backend-specific attestation flow and returns
// the module's session key. Sancus and Native derive the key locally, and
// additionally offload to the manager and cross-check its verdict against
// the local derivation when a manager is configured (a mismatch is fatal:
// it means the module running on the node is not the one this run built).
// SGX runs remote attestation and offloads verdict to the manager, which is
// trusted without comparison. TrustZone derives the key locally then
// verifies it with a challenge/response exchange against the module
// itself.
func (rt *Runtime) deriveModuleKey(ctx context.Context, name string, m modules.Module, node nodes.Node) ([]byte, error) {
	switch typed := m.(type) {
	case *sancus.Module:
		return rt.attestSancus(ctx, name, typed, node)

	case *sgx.Module:
		return rt.attestSGX(ctx, name, typed, node)

	case *native.Module:
		return rt.attestNative(ctx, name, typed, node)

	case *trustzone.Module:
		return rt.attestTrustZone(ctx, name, typed, node)

	default:
		return nil, fmt.Errorf("orchestrator: unknown module type for %q", name)
	}
}

// managerRequest builds the common fields of a manager attest-<backend>
// request: module id/name, and the node's host and reactive port (used for
// both the "port" and "em_port" fields, matching the manager's own EM
// endpoint for this node).
func managerRequest(m modules.Module, node nodes.Node) manager.AttestRequest {
	base := m.Base()
	nb := node.Base()
	return manager.AttestRequest{
		ID:     base.ID,
		Name:   base.Name,
		Host:   nb.IPAddress.String(),
		Port:   nb.ReactivePort,
		EMPort: nb.ReactivePort,
	}
}

func (rt *Runtime) attestSancus(ctx context.Context, name string, m *sancus.Module, node nodes.Node) ([]byte, error) {
	artefact, err := m.Artefact(ctx)
	if err != nil {
		return nil, err
	}
	tmpDir, err := os.MkdirTemp(rt.Workspace, "sancus-attest-*")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create attest tmpdir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	elfPath := filepath.Join(tmpDir, "module.elf")
	if err := os.WriteFile(elfPath, artefact, 0o644); err != nil {
		return nil, fmt.Errorf("orchestrator: write attest elf: %w", err)
	}
	localKey, err := sancus.ModuleKey(ctx, tmpDir, node.Base().VendorKey, elfPath)
	if err != nil {
		return nil, err
	}
	if rt.Manager == nil {
		return localKey, nil
	}

	req := managerRequest(m, node)
	req.Key = localKey
	remoteKey, err := rt.Manager.Attest(ctx, "sancus", req)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(localKey, remoteKey) {
		return nil, &errs.CryptoMismatchError{Module: name}
	}
	return localKey, nil
}

func (rt *Runtime) attestSGX(ctx context.Context, name string, m *sgx.Module, node nodes.Node) ([]byte, error) {
	n, ok := node.(*sgxnode.Node)
	if !ok {
		return nil, fmt.Errorf("orchestrator: module %q is not on an sgx node", name)
	}
	quote, err := n.Attest(ctx, m.Base().ID)
	if err != nil {
		return nil, err
	}
	if rt.Manager == nil {
		return nil, fmt.Errorf("orchestrator: sgx attestation of %q requires a configured manager", name)
	}

	req := managerRequest(m, node)
	req.Quote = quote
	return rt.Manager.Attest(ctx, "sgx", req)
}

func (rt *Runtime) attestNative(ctx context.Context, name string, m *native.Module, node nodes.Node) ([]byte, error) {
	if m.KeySource == native.KeySourceLocalFile {
		localKey, err := m.LoadKey()
		if err != nil {
			return nil, err
		}
		if rt.Manager == nil {
			return localKey, nil
		}

		req := managerRequest(m, node)
		req.Key = localKey
		remoteKey, err := rt.Manager.Attest(ctx, "native", req)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(localKey, remoteKey) {
			return nil, &errs.CryptoMismatchError{Module: name}
		}
		return localKey, nil
	}

	if rt.Manager == nil {
		return nil, fmt.Errorf("orchestrator: native module %q requires a configured manager for key offload", name)
	}
	// No local key file is configured for this module, so there is
	// nothing to cross-check the manager's answer against; it is trusted
	// directly, same as SGX.
	return rt.Manager.Attest(ctx, "native", managerRequest(m, node))
}

func (rt *Runtime) attestTrustZone(ctx context.Context, name string, m *trustzone.Module, node nodes.Node) ([]byte, error) {
	n, ok := node.(*trustzonenode.Node)
	if !ok {
		return nil, fmt.Errorf("orchestrator: module %q is not on a trustzone node", name)
	}
	key, err := m.ModuleKey(node.Base().NodeKey)
	if err != nil {
		return nil, err
	}
	if err := n.Attest(ctx, m.Base().ID, key); err != nil {
		return nil, err
	}
	return key, nil
}
