// Package sgx implements the Module driver for the Intel SGX enclave
// backend: cross-compile to ELF, convert to SGXS, sign, and expose the
// code-generated data manifest as the endpoint source of truth.
package sgx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/toolchain"
)

// Module is an SGX enclave module.
type Module struct {
	model.ModuleBase

	SourceFolder string
	VendorKey    []byte // signing key for the enclave SIGSTRUCT

	built     *modules.Memo[builtArtefacts]
	heapSize  int
	stackSize int
	threads   int
}

type builtArtefacts struct {
	SGXS      []byte
	Signature []byte
}

// New creates an SGX module with the fixed heap/stack/thread counts the
// sign step requires.
func New(name, node, sourceFolder string, vendorKey []byte) *Module {
	m := &Module{
		SourceFolder: sourceFolder,
		VendorKey:    vendorKey,
		built:        modules.NewMemo[builtArtefacts](),
		heapSize:     0x10000,
		stackSize:    0x2000,
		threads:      1,
	}
	m.Name = name
	m.Node = node
	m.OldNode = node
	m.DeployName = name
	m.Backend = model.BackendSGX
	m.Encryption = model.EncryptionAESGCM128
	m.ModuleBase.SupportedEncryptions = []model.Encryption{model.EncryptionAESGCM128}
	return m
}

func (m *Module) Base() *model.ModuleBase                  { return &m.ModuleBase }
func (m *Module) DefaultEncryption() model.Encryption       { return model.EncryptionAESGCM128 }
func (m *Module) SupportedEncryptions() []model.Encryption  { return m.ModuleBase.SupportedEncryptions }

// Build cross-compiles the enclave, converts the ELF to SGXS with
// ftxsgx-elf2sgxs, signs it with sgxs-sign, and loads the codegen's data
// manifest to populate the endpoint tables.
func (m *Module) Build(ctx context.Context, bctx modules.BuildContext) error {
	_, err := m.built.Get(func() (builtArtefacts, error) {
		return m.build(ctx, bctx)
	})
	return err
}

func (m *Module) build(ctx context.Context, bctx modules.BuildContext) (builtArtefacts, error) {
	dir := toolchain.ModuleDir(bctx.Workspace, "sgx", filepath.Base(m.SourceFolder))
	if err := toolchain.EnsureDir(dir); err != nil {
		return builtArtefacts{}, err
	}

	elfPath := filepath.Join(dir, m.DeployName+".elf")
	if _, err := toolchain.Run(ctx, m.SourceFolder, "cargo", "build", "--release",
		"--target-dir", dir); err != nil {
		return builtArtefacts{}, err
	}

	sgxsPath := filepath.Join(dir, m.DeployName+".sgxs")
	if _, err := toolchain.Run(ctx, dir, "ftxsgx-elf2sgxs", elfPath,
		"--heap-size", itoa(m.heapSize),
		"--stack-size", itoa(m.stackSize),
		"--threads", itoa(m.threads),
		"-o", sgxsPath); err != nil {
		return builtArtefacts{}, err
	}

	sigPath := sgxsPath + ".sig"
	keyPath := filepath.Join(dir, "vendor.pem")
	if err := os.WriteFile(keyPath, m.VendorKey, 0o600); err != nil {
		return builtArtefacts{}, fmt.Errorf("sgx: write vendor key: %w", err)
	}
	if _, err := toolchain.Run(ctx, dir, "sgxs-sign", "--key", keyPath, sgxsPath, sigPath); err != nil {
		return builtArtefacts{}, err
	}

	manifestPath := filepath.Join(dir, "data-manifest.json")
	if manifestBytes, err := os.ReadFile(manifestPath); err == nil {
		manifest, err := modules.ParseDataManifest(manifestBytes)
		if err != nil {
			return builtArtefacts{}, err
		}
		manifest.Apply(&m.ModuleBase)
	}

	sgxs, err := os.ReadFile(sgxsPath)
	if err != nil {
		return builtArtefacts{}, fmt.Errorf("sgx: read sgxs: %w", err)
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return builtArtefacts{}, fmt.Errorf("sgx: read signature: %w", err)
	}
	return builtArtefacts{SGXS: sgxs, Signature: sig}, nil
}

func itoa(v int) string { return fmt.Sprintf("%d", v) }

// Artefact returns the SGXS+signature pair concatenated; the node driver
// re-splits it for the Load frame (see wire.PackLoadSGX).
func (m *Module) Artefact(ctx context.Context) ([]byte, error) {
	a, err := m.built.Get(func() (builtArtefacts, error) {
		return builtArtefacts{}, fmt.Errorf("sgx: Build must succeed before Artefact")
	})
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, a.SGXS...), a.Signature...), nil
}

// SGXSAndSignature returns the two artefacts separately, as the Load frame
// needs them length-prefixed independently.
func (m *Module) SGXSAndSignature() (sgxs, sig []byte, err error) {
	a, err := m.built.Get(func() (builtArtefacts, error) {
		return builtArtefacts{}, fmt.Errorf("sgx: Build must succeed before SGXSAndSignature")
	})
	if err != nil {
		return nil, nil, err
	}
	return a.SGXS, a.Signature, nil
}

// Clone returns a fresh SGX module with cleared runtime state.
func (m *Module) Clone(newDeployName string) modules.Module {
	return &Module{
		ModuleBase:   m.CloneBase(newDeployName),
		SourceFolder: m.SourceFolder,
		VendorKey:    append([]byte(nil), m.VendorKey...),
		built:        modules.NewMemo[builtArtefacts](),
		heapSize:     m.heapSize,
		stackSize:    m.stackSize,
		threads:      m.threads,
	}
}
