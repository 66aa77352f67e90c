package cli

import (
	"github.com/spf13/cobra"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/orchestrator"
)

func newUpdateCommand() *cobra.Command {
	cf := commonFlags{}
	var moduleName, entry, output, input string

	cmd := &cobra.Command{
		Use:   "update <config>",
		Short: "Replace a deployed module with a freshly built clone, preserving its connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			req := orchestrator.UpdateRequest{Module: moduleName, Entry: entry, Output: output, Input: input}
			if err := s.rt.Update(s.ctx, req); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlagsNoFormat(cmd, &cf)
	cmd.Flags().StringVar(&moduleName, "module", "", "module to replace")
	cmd.Flags().StringVar(&entry, "entry", "", "entrypoint to call on the old module to trigger a state dump")
	cmd.Flags().StringVar(&output, "output", "", "output on the old module to transfer state from")
	cmd.Flags().StringVar(&input, "input", "", "input on the new module to transfer state into")
	return cmd
}
