package cli

import (
	"github.com/spf13/cobra"
)

func newBuildCommand() *cobra.Command {
	cf := commonFlags{}
	var only string

	cmd := &cobra.Command{
		Use:   "build <config>",
		Short: "Compile module artefacts without deploying them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			if err := s.rt.Build(s.ctx, only); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&only, "module", "", "restrict to a single module by name")
	return cmd
}

func newDeployCommand() *cobra.Command {
	cf := commonFlags{}
	var only string
	var inOrder bool

	cmd := &cobra.Command{
		Use:   "deploy <config>",
		Short: "Build and deploy modules to their nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			if err := s.rt.Deploy(s.ctx, inOrder, only); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&only, "module", "", "restrict to a single module by name")
	cmd.Flags().BoolVar(&inOrder, "deploy-in-order", false, "deploy non-priority modules sequentially instead of fanning out")
	return cmd
}

func newAttestCommand() *cobra.Command {
	cf := commonFlags{}
	var only string
	var inOrder bool

	cmd := &cobra.Command{
		Use:   "attest <config>",
		Short: "Derive and install module session keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			if err := s.rt.Attest(s.ctx, inOrder, only); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&only, "module", "", "restrict to a single module by name")
	cmd.Flags().BoolVar(&inOrder, "deploy-in-order", false, "attest sequentially instead of fanning out")
	return cmd
}

func newConnectCommand() *cobra.Command {
	cf := commonFlags{}
	var only string
	var inOrder bool

	cmd := &cobra.Command{
		Use:   "connect <config>",
		Short: "Establish connections between attested modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			if err := s.rt.Connect(s.ctx, inOrder, only); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&only, "connection", "", "restrict to a single connection by name")
	cmd.Flags().BoolVar(&inOrder, "deploy-in-order", false, "connect sequentially instead of fanning out")
	return cmd
}

func newRegisterCommand() *cobra.Command {
	cf := commonFlags{}
	var only string

	cmd := &cobra.Command{
		Use:   "register <config>",
		Short: "Register periodic events on their owning modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			if err := s.rt.Register(s.ctx, only); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&only, "event", "", "restrict to a single periodic event by name")
	return cmd
}
