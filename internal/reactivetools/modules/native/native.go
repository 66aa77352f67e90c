// Package native implements the Module driver for the no-TEE backend: a
// plain compiled binary run directly by the EM process, with its module
// key either read from a local file or fetched from the attestation
// manager.
package native

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/toolchain"
)

// KeySource selects where a Native module's key comes from.
type KeySource string

const (
	KeySourceLocalFile KeySource = "local_file"
	KeySourceManager    KeySource = "manager"
)

// Module is a native (no-TEE) software module.
type Module struct {
	model.ModuleBase

	SourceFolder string
	BuildCmd     []string // e.g. ["make"], run inside SourceFolder
	KeySource    KeySource
	KeyFile      string // used when KeySource == KeySourceLocalFile

	built *modules.Memo[[]byte]
}

// New creates a Native module.
func New(name, node, sourceFolder string, buildCmd []string, keySource KeySource, keyFile string) *Module {
	m := &Module{
		SourceFolder: sourceFolder,
		BuildCmd:     buildCmd,
		KeySource:    keySource,
		KeyFile:      keyFile,
		built:        modules.NewMemo[[]byte](),
	}
	m.Name = name
	m.Node = node
	m.OldNode = node
	m.DeployName = name
	m.Backend = model.BackendNative
	m.Encryption = model.EncryptionAESGCM128
	m.ModuleBase.SupportedEncryptions = []model.Encryption{model.EncryptionAESGCM128}
	return m
}

func (m *Module) Base() *model.ModuleBase                  { return &m.ModuleBase }
func (m *Module) DefaultEncryption() model.Encryption       { return model.EncryptionAESGCM128 }
func (m *Module) SupportedEncryptions() []model.Encryption  { return m.ModuleBase.SupportedEncryptions }

// Build runs the configured build command and loads the codegen data
// manifest for endpoint resolution, mirroring the SGX/TrustZone drivers.
func (m *Module) Build(ctx context.Context, bctx modules.BuildContext) error {
	_, err := m.built.Get(func() ([]byte, error) {
		return m.build(ctx, bctx)
	})
	return err
}

func (m *Module) build(ctx context.Context, bctx modules.BuildContext) ([]byte, error) {
	dir := toolchain.ModuleDir(bctx.Workspace, "native", filepath.Base(m.SourceFolder))
	if err := toolchain.EnsureDir(dir); err != nil {
		return nil, err
	}

	if len(m.BuildCmd) > 0 {
		if _, err := toolchain.Run(ctx, m.SourceFolder, m.BuildCmd[0], m.BuildCmd[1:]...); err != nil {
			return nil, err
		}
	}

	binPath := filepath.Join(m.SourceFolder, m.DeployName)
	bin, err := os.ReadFile(binPath)
	if err != nil {
		return nil, fmt.Errorf("native: read built binary %s: %w", binPath, err)
	}

	manifestPath := filepath.Join(m.SourceFolder, "data-manifest.json")
	if manifestBytes, err := os.ReadFile(manifestPath); err == nil {
		manifest, err := modules.ParseDataManifest(manifestBytes)
		if err != nil {
			return nil, err
		}
		manifest.Apply(&m.ModuleBase)
	}

	return bin, nil
}

// Artefact returns the built binary.
func (m *Module) Artefact(ctx context.Context) ([]byte, error) {
	bin, err := m.built.Get(func() ([]byte, error) {
		return nil, fmt.Errorf("native: Build must succeed before Artefact")
	})
	if err != nil {
		return nil, err
	}
	return bin, nil
}

// LoadKey returns the module key per KeySource. For KeySourceLocalFile it
// reads KeyFile directly; for KeySourceManager the orchestrator's
// attestation step fetches the key from the attestation manager instead, since that
// requires a manager client and network round trip this package does not
// own.
func (m *Module) LoadKey() ([]byte, error) {
	if m.KeySource != KeySourceLocalFile {
		return nil, fmt.Errorf("native: key source %q is not local_file", m.KeySource)
	}
	key, err := os.ReadFile(m.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("native: read key file: %w", err)
	}
	return key, nil
}

// Clone returns a fresh Native module with cleared runtime state.
func (m *Module) Clone(newDeployName string) modules.Module {
	return &Module{
		ModuleBase:   m.CloneBase(newDeployName),
		SourceFolder: m.SourceFolder,
		BuildCmd:     append([]string(nil), m.BuildCmd...),
		KeySource:    m.KeySource,
		KeyFile:      m.KeyFile,
		built:        modules.NewMemo[[]byte](),
	}
}
