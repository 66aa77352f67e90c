package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func decodeArg(hexArg string) ([]byte, error) {
	if hexArg == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(hexArg)
	if err != nil {
		return nil, fmt.Errorf("cli: --arg: invalid hex: %w", err)
	}
	return b, nil
}

func writeResult(outPath string, data []byte) error {
	if outPath == "" {
		fmt.Printf("%s\n", hex.EncodeToString(data))
		return nil
	}
	return os.WriteFile(outPath, data, 0o644)
}

func newCallCommand() *cobra.Command {
	cf := commonFlags{}
	var moduleName, entryName, hexArg, outPath string

	cmd := &cobra.Command{
		Use:   "call <config>",
		Short: "Invoke an entrypoint on a module directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			arg, err := decodeArg(hexArg)
			if err != nil {
				return err
			}
			resp, err := s.rt.Call(s.ctx, moduleName, entryName, arg)
			if err != nil {
				return err
			}
			if err := writeResult(outPath, resp); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&moduleName, "module", "", "module to call")
	cmd.Flags().StringVar(&entryName, "entry", "", "entrypoint name or numeric id")
	cmd.Flags().StringVar(&hexArg, "arg", "", "hex-encoded argument")
	cmd.Flags().StringVar(&outPath, "out", "", "file to write the response to (defaults to stdout as hex)")
	return cmd
}

func newOutputCommand() *cobra.Command {
	cf := commonFlags{}
	var connName, hexArg string

	cmd := &cobra.Command{
		Use:   "output <config>",
		Short: "Send a sealed value over an established output connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			arg, err := decodeArg(hexArg)
			if err != nil {
				return err
			}
			if err := s.rt.Output(s.ctx, connName, arg); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&connName, "connection", "", "connection to send over")
	cmd.Flags().StringVar(&hexArg, "arg", "", "hex-encoded argument")
	return cmd
}

func newRequestCommand() *cobra.Command {
	cf := commonFlags{}
	var connName, hexArg, outPath string

	cmd := &cobra.Command{
		Use:   "request <config>",
		Short: "Send a sealed request over an established request connection and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			arg, err := decodeArg(hexArg)
			if err != nil {
				return err
			}
			resp, err := s.rt.Request(s.ctx, connName, arg)
			if err != nil {
				return err
			}
			if err := writeResult(outPath, resp); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&connName, "connection", "", "connection to request over")
	cmd.Flags().StringVar(&hexArg, "arg", "", "hex-encoded argument")
	cmd.Flags().StringVar(&outPath, "out", "", "file to write the response to (defaults to stdout as hex)")
	return cmd
}

func newDisableCommand() *cobra.Command {
	cf := commonFlags{}
	var moduleName string

	cmd := &cobra.Command{
		Use:   "disable <config>",
		Short: "Disable a module on its node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf.config = args[0]
			s, err := newSession(cmd.Context(), cf)
			if err != nil {
				return err
			}
			if err := s.rt.DisableModule(s.ctx, moduleName); err != nil {
				return err
			}
			return s.finish()
		},
	}
	registerCommonFlags(cmd, &cf)
	cmd.Flags().StringVar(&moduleName, "module", "", "module to disable")
	return cmd
}
