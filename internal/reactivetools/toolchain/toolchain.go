// Package toolchain runs the external build/sign/attest tools named in spec
// the external toolchain binaries (sancus-cc, sancus-ld, sancus-crypto, cargo, ftxsgx-elf2sgxs,
// sgxs-sign, sgx-attester, attman-cli, ...) and converts a non-zero exit
// into an errs.ToolchainFailureError.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
)

// Run executes name with args, returning stdout on success. On a non-zero
// exit it returns an *errs.ToolchainFailureError carrying the command, args,
// exit code and captured stderr.
func Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &errs.ToolchainFailureError{
			Command:  name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
		}
	}
	return stdout.Bytes(), nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// EnsureDir creates dir (and parents) if it does not already exist, mirroring
// the "create ./build/ if absent" requirement.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("toolchain: create dir %s: %w", dir, err)
	}
	return nil
}

// ModuleDir returns the per-module build subdirectory for the given backend
// prefix (sancus-<name>, sgx-<folder>, trustzone-<name>, native-<folder>).
func ModuleDir(workspace, prefix, name string) string {
	return filepath.Join(workspace, prefix+"-"+name)
}
