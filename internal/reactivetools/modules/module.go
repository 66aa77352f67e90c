package modules

import (
	"context"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

// BuildContext carries the ambient state a module's build() needs: the
// workspace directory, the selected compiler mode, and how many connections
// are already known to reference it (the Sancus sm-config-file wants
// num_connections up front).
type BuildContext struct {
	Workspace        string
	Mode             BuildMode
	KnownConnections int
}

// BuildMode selects optimization/debug flags passed to the per-backend
// toolchain.
type BuildMode string

const (
	ModeDebug   BuildMode = "debug"
	ModeRelease BuildMode = "release"
)

// Module is the shared behavioral trait every backend's module implements,
// as a tagged union with a shared behavioral trait. Deploy is
// intentionally absent here: deploying a built module is a node-driver
// operation (nodes.Node.Deploy) since it is the EM, not the module artefact,
// that accepts the Load command.
type Module interface {
	// Base returns the shared data fields (name, node, lifecycle flags, ...).
	Base() *model.ModuleBase

	// Build compiles/links/signs the module's artefacts for its backend,
	// memoised so a second call returns the first call's result. Populates
	// the Inputs/Outputs/Entrypoints/Requests/Handlers tables on success.
	Build(ctx context.Context, bctx BuildContext) error

	// Artefact returns the backend-specific built payload ready for Load
	// (e.g. a linked ELF, an SGXS+signature pair, a .ta image). Build must
	// have succeeded first.
	Artefact(ctx context.Context) ([]byte, error)

	// Clone returns a new Module with identical static configuration but
	// cleared runtime state, used by the update flow.
	Clone(newDeployName string) Module

	// DefaultEncryption returns the backend's default AEAD suite, used by
	// update's one-shot transfer connection when no explicit encryption is
	// requested.
	DefaultEncryption() model.Encryption

	// SupportedEncryptions returns the AEAD suites this module's backend can
	// negotiate.
	SupportedEncryptions() []model.Encryption
}
