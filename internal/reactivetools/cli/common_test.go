package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
)

func TestRegisterCommonFlags_SetsAllSharedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cf := commonFlags{}
	registerCommonFlags(cmd, &cf)

	for _, name := range []string{"workspace", "result", "mode", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s to be registered", name)
		}
	}
}

func TestRegisterCommonFlagsNoFormat_OmitsOutput(t *testing.T) {
	cmd := &cobra.Command{Use: "update"}
	cf := commonFlags{}
	registerCommonFlagsNoFormat(cmd, &cf)

	if cmd.Flags().Lookup("output") != nil {
		t.Error("registerCommonFlagsNoFormat must not register --output, so update's own --output (module endpoint) can be registered instead")
	}
	for _, name := range []string{"workspace", "result", "mode"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s to be registered", name)
		}
	}

	// registering update's own --output afterward must not panic on a
	// duplicate flag, proving the two registration paths don't collide.
	cmd.Flags().StringVar(new(string), "output", "", "output on the old module to transfer state from")
}

func TestLogger_LevelsByFlag(t *testing.T) {
	saved := flags
	defer func() { flags = saved }()

	ctx := context.Background()

	flags = globalFlags{}
	if logger().Enabled(ctx, slog.LevelDebug) {
		t.Error("default logger should not be debug-enabled")
	}

	flags = globalFlags{debug: true}
	if !logger().Enabled(ctx, slog.LevelDebug) {
		t.Error("--debug should enable debug-level logging")
	}
}
