package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/sancus"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/sgx"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules/trustzone"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
)

// Build compiles only, without deploying: Build(only_name?).
func (rt *Runtime) Build(ctx context.Context, only string) error {
	names := rt.targetModules(only)
	return fanOut(ctx, names, false, func(ctx context.Context, name string) error {
		m, err := rt.module(name)
		if err != nil {
			return err
		}
		return m.Build(ctx, modules.BuildContext{Workspace: rt.Workspace, Mode: rt.Mode, KnownConnections: rt.connectionsTouching(name)})
	})
}

// Deploy implements a priority-then-fan-out policy: priority
// modules deploy first, strictly sequentially in ascending priority; the
// rest deploy afterward, sequentially if inOrder else concurrently. A
// module already deployed is skipped.
func (rt *Runtime) Deploy(ctx context.Context, inOrder bool, only string) error {
	priority, rest := rt.splitByPriority(rt.targetModules(only))

	err := rt.measureTime("deploy:priority", func() error {
		return fanOut(ctx, priority, true, rt.deployOne)
	})
	if err != nil {
		return err
	}

	return rt.measureTime("deploy:rest", func() error {
		return fanOut(ctx, rest, inOrder, rt.deployOne)
	})
}

func (rt *Runtime) splitByPriority(names []string) (priority, rest []string) {
	type entry struct {
		name string
		pri  int
	}
	var prioritized []entry
	for _, name := range names {
		m, err := rt.module(name)
		if err != nil {
			continue
		}
		if p := m.Base().Priority; p != nil {
			prioritized = append(prioritized, entry{name, *p})
		} else {
			rest = append(rest, name)
		}
	}
	sort.Slice(prioritized, func(i, j int) bool { return prioritized[i].pri < prioritized[j].pri })
	for _, e := range prioritized {
		priority = append(priority, e.name)
	}
	return priority, rest
}

func (rt *Runtime) deployOne(ctx context.Context, name string) error {
	m, err := rt.module(name)
	if err != nil {
		return err
	}
	base := m.Base()
	if base.Deployed {
		return nil
	}

	node, err := rt.node(base.Node)
	if err != nil {
		return err
	}

	bctx := modules.BuildContext{Workspace: rt.Workspace, Mode: rt.Mode, KnownConnections: rt.connectionsTouching(name)}
	if err := m.Build(ctx, bctx); err != nil {
		return err
	}
	artefact, err := m.Artefact(ctx)
	if err != nil {
		return err
	}

	req := nodes.DeployRequest{Artefact: artefact, ModuleName: base.DeployName}
	switch typed := m.(type) {
	case *sgx.Module:
		sgxs, sig, err := typed.SGXSAndSignature()
		if err != nil {
			return err
		}
		req.Artefact, req.Signature = sgxs, sig
	case *trustzone.Module:
		base.ID = node.Base().AllocModuleID()
		req.ModuleID = base.ID
		req.UUID = typed.TAUUID
	}

	moduleID, symbolTable, err := node.Deploy(ctx, req)
	if err != nil {
		return err
	}
	if moduleID == 0 {
		return &errs.WireError{Op: fmt.Sprintf("deploy %s", name), Message: "module_id == 0"}
	}
	base.ID = moduleID
	base.Deployed = true

	if sancusMod, ok := m.(*sancus.Module); ok && symbolTable != nil {
		if err := sancusMod.ResolveEndpoints(symbolTable); err != nil {
			return err
		}
	}

	rt.persistModule(name)
	rt.persistNode(base.Node)
	return nil
}

// targetModules returns all module names, or just only if it names one.
func (rt *Runtime) targetModules(only string) []string {
	if only != "" {
		return []string{only}
	}
	names := make([]string, 0, len(rt.modulesByName))
	for name := range rt.modulesByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rt *Runtime) connectionsTouching(moduleName string) int {
	n := 0
	for _, c := range rt.Config.Connections {
		if c.FromModule == moduleName || c.ToModule == moduleName {
			n++
		}
	}
	return n
}
