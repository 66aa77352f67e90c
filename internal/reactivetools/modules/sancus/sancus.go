// Package sancus implements the Module driver for the MSP430-class Sancus
// enclave backend: source rewriting, compile+link via the sancus-cc/
// sancus-ld toolchain, and module-key derivation via sancus-crypto.
package sancus

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/toolchain"
)

// Module is a Sancus/MSP430-class software module.
type Module struct {
	model.ModuleBase

	// SourceFiles are the source files compiled and linked for this module.
	// Each file's {name} placeholder is substituted with DeployName before
	// compilation.
	SourceFiles []string
	CFlags      []string
	LDFlags     []string

	artefact *modules.Memo[[]byte]
}

// New creates a Sancus module. DeployName defaults to Name if empty.
func New(name, node string, sources []string, cflags, ldflags []string) *Module {
	m := &Module{
		SourceFiles: sources,
		CFlags:      cflags,
		LDFlags:     ldflags,
		artefact:    modules.NewMemo[[]byte](),
	}
	m.Name = name
	m.Node = node
	m.OldNode = node
	m.DeployName = name
	m.Backend = model.BackendSancus
	m.Encryption = model.EncryptionSpongent128
	m.ModuleBase.SupportedEncryptions = []model.Encryption{model.EncryptionSpongent128, model.EncryptionAESGCM128}
	return m
}

func (m *Module) Base() *model.ModuleBase { return &m.ModuleBase }

func (m *Module) DefaultEncryption() model.Encryption { return model.EncryptionSpongent128 }

func (m *Module) SupportedEncryptions() []model.Encryption { return m.ModuleBase.SupportedEncryptions }

// Build rewrites each source file's {name} placeholder with DeployName,
// compiles each to an object with sancus-cc, and links them with sancus-ld
// using a generated sm-config-file carrying num_connections. The
// result is memoised: a second Build call returns the first's linked ELF
// without recompiling.
func (m *Module) Build(ctx context.Context, bctx modules.BuildContext) error {
	_, err := m.artefact.Get(func() ([]byte, error) {
		return m.build(ctx, bctx)
	})
	return err
}

func (m *Module) build(ctx context.Context, bctx modules.BuildContext) ([]byte, error) {
	dir := toolchain.ModuleDir(bctx.Workspace, "sancus", m.Name)
	if err := toolchain.EnsureDir(dir); err != nil {
		return nil, err
	}

	var objects []string
	for _, src := range m.SourceFiles {
		rewritten, err := rewriteSource(src, dir, m.DeployName)
		if err != nil {
			return nil, err
		}
		obj := strings.TrimSuffix(rewritten, filepath.Ext(rewritten)) + ".o"
		args := append([]string{"-c", "-o", obj, rewritten}, m.CFlags...)
		if _, err := toolchain.Run(ctx, dir, "sancus-cc", args...); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	configPath := filepath.Join(dir, "sm-config-file")
	if err := writeSMConfig(configPath, bctx.KnownConnections); err != nil {
		return nil, err
	}

	elfPath := filepath.Join(dir, m.DeployName+".elf")
	args := append([]string{"-o", elfPath, "--config", configPath}, m.LDFlags...)
	args = append(args, objects...)
	if _, err := toolchain.Run(ctx, dir, "sancus-ld", args...); err != nil {
		return nil, err
	}

	elf, err := os.ReadFile(elfPath)
	if err != nil {
		return nil, fmt.Errorf("sancus: read linked elf: %w", err)
	}
	return elf, nil
}

func rewriteSource(src, dir, deployName string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("sancus: read source %s: %w", src, err)
	}
	rewritten := bytes.ReplaceAll(data, []byte("{name}"), []byte(deployName))
	out := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(out, rewritten, 0o644); err != nil {
		return "", fmt.Errorf("sancus: write rewritten source: %w", err)
	}
	return out, nil
}

func writeSMConfig(path string, numConnections int) error {
	content := fmt.Sprintf("num_connections = %d\n", numConnections)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("sancus: write sm-config-file: %w", err)
	}
	return nil
}

// Artefact returns the linked ELF produced by Build.
func (m *Module) Artefact(ctx context.Context) ([]byte, error) {
	elf, err := m.artefact.Get(func() ([]byte, error) {
		return nil, fmt.Errorf("sancus: Build must succeed before Artefact")
	})
	if err != nil {
		return nil, err
	}
	return elf, nil
}

// ModuleKey invokes sancus-crypto over the linked ELF and the node's vendor
// key to derive the module key.
func ModuleKey(ctx context.Context, dir string, vendorKey []byte, elfPath string) ([]byte, error) {
	args := []string{"-k", fmt.Sprintf("%x", vendorKey), "-i", elfPath}
	out, err := toolchain.Run(ctx, dir, "sancus-crypto", args...)
	if err != nil {
		return nil, err
	}
	return decodeHex(bytes.TrimSpace(out))
}

func decodeHex(b []byte) ([]byte, error) {
	out, err := hex.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("sancus: decode module key: %w", err)
	}
	return out, nil
}

// ResolveEndpoints reads endpoint indices from the ELF symbol table returned
// by the node driver's deploy response, matching symbols named
// __sm_<deploy_name>_io_<name>_idx and __sm_<deploy_name>_entry_<name>_idx.
func (m *Module) ResolveEndpoints(symbolTable []byte) error {
	ioPrefix := fmt.Sprintf("__sm_%s_io_", m.DeployName)
	entryPrefix := fmt.Sprintf("__sm_%s_entry_", m.DeployName)

	inputs := map[string]uint16{}
	outputs := map[string]uint16{}
	entrypoints := map[string]uint16{}

	for _, line := range bytes.Split(symbolTable, []byte("\n")) {
		sym, idx, ok := parseSymbolLine(line)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(sym, ioPrefix):
			name := strings.TrimSuffix(strings.TrimPrefix(sym, ioPrefix), "_idx")
			// The symbol table does not distinguish input vs output by name
			// alone; build() records that split via a sidecar map populated
			// at source-rewrite time in a full implementation. Here both
			// tables are populated so callers can resolve by name regardless
			// of direction, matching the read path used by connection
			// establishment (which already knows which side it is on).
			inputs[name] = idx
			outputs[name] = idx
		case strings.HasPrefix(sym, entryPrefix):
			name := strings.TrimSuffix(strings.TrimPrefix(sym, entryPrefix), "_idx")
			entrypoints[name] = idx
		}
	}

	m.Inputs = inputs
	m.Outputs = outputs
	m.Entrypoints = entrypoints
	return nil
}

func parseSymbolLine(line []byte) (name string, idx uint16, ok bool) {
	fields := strings.Fields(string(line))
	if len(fields) != 2 {
		return "", 0, false
	}
	v, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return "", 0, false
	}
	return fields[0], uint16(v), true
}

// Clone returns a fresh Sancus module with cleared runtime state, suitable for the update flow.
func (m *Module) Clone(newDeployName string) modules.Module {
	clone := &Module{
		ModuleBase:  m.CloneBase(newDeployName),
		SourceFiles: append([]string(nil), m.SourceFiles...),
		CFlags:      append([]string(nil), m.CFlags...),
		LDFlags:     append([]string(nil), m.LDFlags...),
		artefact:    modules.NewMemo[[]byte](),
	}
	return clone
}
