// Package orchestrator implements the top-level lifecycle engine:
// deploy, build, attest, connect, register, call, output, request,
// disable, update, reset and cleanup, each built from the node/module/conn
// primitives in the sibling packages and driven by a loaded descriptor.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/manager"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/rules"
)

// Runtime is the process-scoped context every orchestrator operation runs
// against: the loaded descriptor, the constructed node/module drivers, and
// the ambient manager client/build mode/timing flag that the source kept as
// module-level globals.
type Runtime struct {
	Config    *descriptor.Config
	Workspace string
	Mode      modules.BuildMode
	Manager   *manager.Client // nil when manager offload is disabled
	Timing    bool

	log *slog.Logger

	mu            sync.Mutex
	nodesByName   map[string]nodes.Node
	modulesByName map[string]modules.Module
	nodeRecords   map[string]descriptor.Record
	moduleRecords map[string]descriptor.Record
}

// New validates cfg against the rules engine and constructs every node/module driver it describes.
func New(cfg *descriptor.Config, workspace string, mode modules.BuildMode, log *slog.Logger) (*Runtime, error) {
	if err := rules.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	rt := &Runtime{
		Config:        cfg,
		Workspace:     workspace,
		Mode:          mode,
		log:           log,
		nodesByName:   map[string]nodes.Node{},
		modulesByName: map[string]modules.Module{},
		nodeRecords:   map[string]descriptor.Record{},
		moduleRecords: map[string]descriptor.Record{},
	}

	for _, r := range cfg.Nodes {
		n, err := buildNode(r)
		if err != nil {
			return nil, err
		}
		name := r.String("name")
		rt.nodesByName[name] = n
		rt.nodeRecords[name] = r
	}
	for _, r := range cfg.Modules {
		m, err := buildModule(r)
		if err != nil {
			return nil, err
		}
		name := r.String("name")
		rt.modulesByName[name] = m
		rt.moduleRecords[name] = r
	}
	return rt, nil
}

func (rt *Runtime) node(name string) (nodes.Node, error) {
	n, ok := rt.nodesByName[name]
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown node %q", name)
	}
	return n, nil
}

func (rt *Runtime) module(name string) (modules.Module, error) {
	m, ok := rt.modulesByName[name]
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown module %q", name)
	}
	return m, nil
}

// persistModule writes m's current lifecycle fields back into the
// descriptor record backing it, so the next Dump reflects progress made
// this run.
func (rt *Runtime) persistModule(name string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	m, ok := rt.modulesByName[name]
	if !ok {
		return
	}
	descriptor.MergeModuleBase(rt.moduleRecords[name], m.Base())
}

func (rt *Runtime) persistNode(name string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n, ok := rt.nodesByName[name]
	if !ok {
		return
	}
	descriptor.MergeNodeBase(rt.nodeRecords[name], n.Base())
}

// measureTime wraps op with a timestamped record emitted as
// "<label>: <seconds>.3f" when Timing is enabled.
func (rt *Runtime) measureTime(label string, op func() error) error {
	if !rt.Timing {
		return op()
	}
	start := time.Now()
	err := op()
	fmt.Printf("%s: %.3f\n", label, time.Since(start).Seconds())
	return err
}

// fanOut runs fn(name) for every name in names, sequentially if inOrder,
// otherwise concurrently, joining on the first error only after every task
// has finished (so a failure in one task does not hide others' results —
// but the first error observed is still what callers see.
func fanOut(ctx context.Context, names []string, inOrder bool, fn func(context.Context, string) error) error {
	if inOrder {
		for _, name := range names {
			if err := fn(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(names))
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			errCh <- fn(ctx, name)
		}(name)
	}
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
