package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AuthenticExecution/reactive-tools/common/environment"
	"github.com/AuthenticExecution/reactive-tools/common/trace"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/manager"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/orchestrator"
)

// commonFlags are the per-command flags shared by every subcommand that
// operates against a descriptor.
type commonFlags struct {
	config    string
	workspace string
	result    string
	output    string
	mode      string
}

// registerCommonFlags adds the descriptor-operating flags shared
// across subcommands; cf.config is bound positionally by each caller since
// cobra.Command.Args differs per command (most take exactly one descriptor
// path).
func registerCommonFlags(cmd *cobra.Command, cf *commonFlags) {
	registerCommonFlagsNoFormat(cmd, cf)
	cmd.Flags().StringVar(&cf.output, "output", "", "output format override: json or yaml (defaults to the input format)")
}

// registerCommonFlagsNoFormat is registerCommonFlags without --output, for
// update, whose own --output flag names a module endpoint instead of a
// serialization format.
func registerCommonFlagsNoFormat(cmd *cobra.Command, cf *commonFlags) {
	cmd.Flags().StringVar(&cf.workspace, "workspace", "./build", "build workspace directory")
	cmd.Flags().StringVar(&cf.result, "result", "", "path to write the updated descriptor (defaults to <config>)")
	cmd.Flags().StringVar(&cf.mode, "mode", "debug", "build mode: debug or release")
}

// session bundles the loaded descriptor and constructed runtime for one CLI
// invocation, plus the bookkeeping needed to persist the result on success.
type session struct {
	ctx context.Context
	cfg *descriptor.Config
	rt  *orchestrator.Runtime
	cf  commonFlags
}

// attmanCLIBinEnv names the environment variable that overrides the
// attman-cli binary (a bare attman-cli PATH lookup otherwise), so CI and
// dev environments can point at a non-standard build without a flag on
// every subcommand.
const attmanCLIBinEnv = "REACTIVE_TOOLS_ATTMAN_CLI"

func newSession(ctx context.Context, cf commonFlags) (*session, error) {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)
	log := logger().With("trace_id", traceID)
	log.Info("loading descriptor", "path", cf.config)

	cfg, err := descriptor.LoadStrict(cf.config)
	if err != nil {
		return nil, err
	}

	mode := modules.ModeDebug
	if cf.mode == string(modules.ModeRelease) {
		mode = modules.ModeRelease
	}

	rt, err := orchestrator.New(cfg, cf.workspace, mode, log)
	if err != nil {
		return nil, err
	}
	rt.Timing = flags.timing

	if flags.manager != "" {
		mgrCfg, err := descriptor.ManagerConfig(cfg)
		if err != nil {
			return nil, err
		}
		if mgrCfg == nil {
			return nil, fmt.Errorf("cli: --manager given but descriptor has no manager section")
		}
		mgrCfg.ConfigPath = flags.manager
		cliBin := environment.StringOr(attmanCLIBinEnv, "attman-cli")
		client, err := manager.Open(mgrCfg, cliBin, cf.workspace, cf.workspace+"/attman-cache.db")
		if err != nil {
			return nil, err
		}
		rt.Manager = client
		log.Info("attestation manager enabled", "cli_bin", cliBin)
	}

	return &session{ctx: ctx, cfg: cfg, rt: rt, cf: cf}, nil
}

// finish persists the descriptor to result (or config, if result is empty)
// in the requested output format (or the format it was loaded in), and
// closes any resources the session opened.
func (s *session) finish() error {
	path := s.cf.result
	if path == "" {
		path = s.cf.config
	}

	if s.rt.Manager != nil {
		defer s.rt.Manager.Close()
	}

	switch s.cf.output {
	case "":
		return s.cfg.Dump(path)
	case "json":
		return s.cfg.DumpAs(path, descriptor.FormatJSON)
	case "yaml":
		return s.cfg.DumpAs(path, descriptor.FormatYAML)
	default:
		return fmt.Errorf("cli: unknown --output format %q", s.cf.output)
	}
}
