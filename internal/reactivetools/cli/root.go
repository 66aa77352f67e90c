// Package cli builds the reactive-tools command tree: one cobra subcommand
// per orchestrator operation, sharing a common set of global flags and a
// single load-descriptor/build-runtime/run/dump/exit-code helper.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AuthenticExecution/reactive-tools/common/version"
)

// globalFlags holds the persistent flags every subcommand reads, set on the
// root command and inherited by children (mirrors the pack's cobra subcommand
// trees, where cross-cutting flags live on the parent and leaves only add
// their own).
type globalFlags struct {
	verbose bool
	debug   bool
	manager string
	timing  bool
}

var flags globalFlags

// Execute builds the command tree and runs it, returning the process exit
// code: 0 on success, -1 on any error, per the CLI's exit-code discipline.
func Execute() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		reportError(err)
		return -1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reactive-tools",
		Short:         "Deploy and manage an Authentic Execution network",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug-level logging; errors are still printed as one message, without a stack trace")
	root.PersistentFlags().StringVar(&flags.manager, "manager", "", "path to an attestation-manager config file; omit to attest locally")
	root.PersistentFlags().BoolVar(&flags.timing, "timing", false, "print timing information for each phase")

	root.AddCommand(
		newBuildCommand(),
		newDeployCommand(),
		newAttestCommand(),
		newConnectCommand(),
		newRegisterCommand(),
		newCallCommand(),
		newOutputCommand(),
		newRequestCommand(),
		newDisableCommand(),
		newUpdateCommand(),
	)
	return root
}

func reportError(err error) {
	if flags.debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelInfo
	}
	if flags.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
