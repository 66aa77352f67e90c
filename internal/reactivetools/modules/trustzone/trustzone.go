// Package trustzone implements the Module driver for the ARM TrustZone
// backend: a Trusted Application (TA) identified by a UUID, built with the
// OP-TEE devkit and keyed from a SHA-256 hash of the node key and the
// built TA image.
package trustzone

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/crypto"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/toolchain"
)

// Module is an ARM TrustZone trusted application module.
type Module struct {
	model.ModuleBase

	SourceFolder string
	TAUUID       uuid.UUID

	built *modules.Memo[builtTA]
}

type builtTA struct {
	Image []byte
	Hash  []byte // SHA-256 of Image, used for module-key derivation
}

// New creates a TrustZone module with a freshly generated TA UUID; Clone
// generates another one for the replacement module.
func New(name, node, sourceFolder string) *Module {
	m := &Module{
		SourceFolder: sourceFolder,
		TAUUID:       uuid.New(),
		built:        modules.NewMemo[builtTA](),
	}
	m.Name = name
	m.Node = node
	m.OldNode = node
	m.DeployName = name
	m.Backend = model.BackendTrustZone
	m.Encryption = model.EncryptionAESGCM128
	m.ModuleBase.SupportedEncryptions = []model.Encryption{model.EncryptionAESGCM128}
	return m
}

func (m *Module) Base() *model.ModuleBase                  { return &m.ModuleBase }
func (m *Module) DefaultEncryption() model.Encryption       { return model.EncryptionAESGCM128 }
func (m *Module) SupportedEncryptions() []model.Encryption  { return m.ModuleBase.SupportedEncryptions }

// Build compiles the TA against the OP-TEE devkit, substituting the
// generated UUID into the TA's identity header, and loads the codegen data
// manifest for endpoint resolution.
func (m *Module) Build(ctx context.Context, bctx modules.BuildContext) error {
	_, err := m.built.Get(func() (builtTA, error) {
		return m.build(ctx, bctx)
	})
	return err
}

func (m *Module) build(ctx context.Context, bctx modules.BuildContext) (builtTA, error) {
	dir := toolchain.ModuleDir(bctx.Workspace, "trustzone", filepath.Base(m.SourceFolder))
	if err := toolchain.EnsureDir(dir); err != nil {
		return builtTA{}, err
	}

	if _, err := toolchain.Run(ctx, m.SourceFolder, "make",
		"TA_UUID="+m.TAUUID.String(),
		"O="+dir); err != nil {
		return builtTA{}, err
	}

	taPath := filepath.Join(dir, m.TAUUID.String()+".ta")
	image, err := os.ReadFile(taPath)
	if err != nil {
		return builtTA{}, fmt.Errorf("trustzone: read built ta %s: %w", taPath, err)
	}

	manifestPath := filepath.Join(dir, "data-manifest.json")
	if manifestBytes, err := os.ReadFile(manifestPath); err == nil {
		manifest, err := modules.ParseDataManifest(manifestBytes)
		if err != nil {
			return builtTA{}, err
		}
		manifest.Apply(&m.ModuleBase)
	}

	sum := sha256.Sum256(image)
	return builtTA{Image: image, Hash: sum[:]}, nil
}

// Artefact returns the built TA image.
func (m *Module) Artefact(ctx context.Context) ([]byte, error) {
	ta, err := m.built.Get(func() (builtTA, error) {
		return builtTA{}, fmt.Errorf("trustzone: Build must succeed before Artefact")
	})
	if err != nil {
		return nil, err
	}
	return ta.Image, nil
}

// ModuleKey derives the module's session key from the node key
// and the built TA image hash.
func (m *Module) ModuleKey(nodeVendorKey []byte) ([]byte, error) {
	ta, err := m.built.Get(func() (builtTA, error) {
		return builtTA{}, fmt.Errorf("trustzone: Build must succeed before ModuleKey")
	})
	if err != nil {
		return nil, err
	}
	return crypto.TrustZoneModuleKey(nodeVendorKey, ta.Hash), nil
}

// Clone returns a fresh TrustZone module with a newly generated TA UUID, as
// required by the update flow so the replacement TA does not collide with
// the one it is replacing inside the same OP-TEE instance.
func (m *Module) Clone(newDeployName string) modules.Module {
	return &Module{
		ModuleBase:   m.CloneBase(newDeployName),
		SourceFolder: m.SourceFolder,
		TAUUID:       uuid.New(),
		built:        modules.NewMemo[builtTA](),
	}
}
