package orchestrator

import (
	"fmt"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/native"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/sancus"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/sgx"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/trustzone"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	nativenode "github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes/native"
	sancusnode "github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes/sancus"
	sgxnode "github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes/sgx"
	trustzonenode "github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes/trustzone"
)

// buildNode constructs the backend-appropriate Node driver for a descriptor
// node record.
func buildNode(r descriptor.Record) (nodes.Node, error) {
	base := descriptor.NodeBaseFromRecord(r)

	switch base.Backend {
	case model.BackendSancus:
		base.VendorID = r.Uint16("vendor_id")
		vendorKey, err := r.Bytes("vendor_key")
		if err != nil {
			return nil, err
		}
		base.VendorKey = vendorKey
		return sancusnode.New(&base), nil

	case model.BackendSGX:
		base.AESMHost = r.String("aesm_host")
		base.AESMPort = r.Uint16("aesm_port")
		return sgxnode.New(&base, r.String("attester_bin")), nil

	case model.BackendNative:
		return nativenode.New(&base), nil

	case model.BackendTrustZone:
		nodeKey, err := r.Bytes("node_key")
		if err != nil {
			return nil, err
		}
		base.NodeKey = nodeKey
		return trustzonenode.New(&base), nil

	default:
		return nil, fmt.Errorf("orchestrator: unknown node backend %q", base.Backend)
	}
}

// buildModule constructs the backend-appropriate Module driver for a
// descriptor module record and restores any persisted lifecycle state
// (deployed/attested/id/key/nonce/...) so a second `deploy` run over the
// same descriptor sees modules from a prior run as already complete.
func buildModule(r descriptor.Record) (modules.Module, error) {
	name := r.String("name")
	node := r.String("node")
	backend := model.Backend(r.String("backend"))

	var m modules.Module
	switch backend {
	case model.BackendSancus:
		m = sancus.New(name, node, r.StringSlice("source_files"), r.StringSlice("cflags"), r.StringSlice("ldflags"))

	case model.BackendSGX:
		vendorKey, err := r.Bytes("vendor_key")
		if err != nil {
			return nil, err
		}
		m = sgx.New(name, node, r.String("source_folder"), vendorKey)

	case model.BackendNative:
		ks := native.KeySourceLocalFile
		if r.String("key_source") == string(native.KeySourceManager) {
			ks = native.KeySourceManager
		}
		m = native.New(name, node, r.String("source_folder"), r.StringSlice("build_cmd"), ks, r.String("key_file"))

	case model.BackendTrustZone:
		m = trustzone.New(name, node, r.String("source_folder"))

	default:
		return nil, fmt.Errorf("orchestrator: unknown module backend %q", backend)
	}

	persisted, err := descriptor.ModuleBaseFromRecord(r)
	if err != nil {
		return nil, err
	}
	restoreModuleState(m.Base(), &persisted)
	return m, nil
}

// restoreModuleState copies the mutable lifecycle fields of persisted onto
// base. DeployName and Key are overridden only when the descriptor carries
// a non-empty value. Encryption and SupportedEncryptions always keep the
// constructor's backend defaults; a persisted encryption is not restored.
func restoreModuleState(base *model.ModuleBase, persisted *model.ModuleBase) {
	base.OldNode = persisted.OldNode
	base.Deployed = persisted.Deployed
	base.Attested = persisted.Attested
	base.Priority = persisted.Priority
	base.Nonce = persisted.Nonce
	base.ID = persisted.ID
	if len(persisted.Key) > 0 {
		base.Key = persisted.Key
	}
	if persisted.DeployName != "" {
		base.DeployName = persisted.DeployName
	}
}
