package orchestrator

import (
	"context"
	"fmt"
	"reflect"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/conn"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/descriptor"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/errs"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/modules"
)

// UpdateRequest names the module to replace and, optionally, the
// entry/output/input triple used to transfer its state to the clone before
// disabling it. All three must be set together, or none.
type UpdateRequest struct {
	Module string
	Entry  string
	Output string
	Input  string
}

func (u UpdateRequest) hasTransfer() bool {
	return u.Entry != "" || u.Output != "" || u.Input != ""
}

func (u UpdateRequest) validate() error {
	set := 0
	for _, s := range []string{u.Entry, u.Output, u.Input} {
		if s != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("orchestrator: update: entry/output/input must be given together or not at all")
	}
	return nil
}

// Update replaces req.Module with a freshly deployed, freshly attested clone
// while preserving every connection the original participated in: clone,
// deploy+attest the clone, disable the original (optionally transferring
// state first), re-establish every touching connection onto the clone, then
// swap the clone into the config in the original's place.
func (rt *Runtime) Update(ctx context.Context, req UpdateRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	m, err := rt.module(req.Module)
	if err != nil {
		return err
	}
	base := m.Base()
	if !base.Deployed {
		return &errs.PreconditionViolationError{Op: "update", Entity: req.Module, Reason: "module must be deployed first"}
	}

	base.OldNode = base.Node
	clone := m.Clone(base.DeployName + "_new")
	cloneBase := clone.Base()
	cloneBase.Node = base.OldNode

	// cloneName is a scratch bookkeeping key only, used to keep the clone's
	// driver/record addressable while it coexists with the original under
	// rt.modulesByName/moduleRecords. clone.Base().Name (set by CloneBase)
	// is left equal to req.Module: the clone keeps the original's identity
	// throughout, and only its on-EM DeployName differs, so that
	// rt.module(req.Module) still resolves to it once replaceModule swaps
	// it into place at the end.
	cloneName := cloneBase.DeployName
	rt.registerModule(cloneName, clone)

	bctx := modules.BuildContext{Workspace: rt.Workspace, Mode: rt.Mode, KnownConnections: rt.connectionsTouching(req.Module)}
	if err := clone.Build(ctx, bctx); err != nil {
		return err
	}
	if err := rt.deployOne(ctx, cloneName); err != nil {
		return err
	}
	if err := rt.attestOne(ctx, cloneName); err != nil {
		return err
	}

	node, err := rt.node(base.Node)
	if err != nil {
		return err
	}

	if req.hasTransfer() {
		if err := rt.transferState(ctx, req, cloneName, m, clone); err != nil {
			return err
		}
	}

	if err := rt.disableOnNode(ctx, node, base); err != nil {
		return err
	}
	rt.persistModule(req.Module)

	if err := rt.retargetConnections(ctx, req.Module, cloneName); err != nil {
		return err
	}

	rt.replaceModule(req.Module, cloneName)
	return nil
}

// transferState establishes a one-shot connection from module's output to
// clone's input under module's default encryption, then calls entry on
// module to trigger a state dump. The caller disables module right after,
// which also retires this transfer connection along with everything else.
// cloneName is the clone's scratch bookkeeping key (see Update), used as
// the connection's ToModule since clone.Base().Name equals req.Module too
// and a connection cannot have identical from/to module identifiers.
func (rt *Runtime) transferState(ctx context.Context, req UpdateRequest, cloneName string, m, clone modules.Module) error {
	fromBase := m.Base()
	toBase := clone.Base()

	outID, ok := fromBase.GetOutputID(req.Output)
	if !ok {
		return fmt.Errorf("orchestrator: update: module %q has no output %q", req.Module, req.Output)
	}
	inID, ok := toBase.GetInputID(req.Input)
	if !ok {
		return fmt.Errorf("orchestrator: update: module %q (clone) has no input %q", cloneName, req.Input)
	}

	fromNode, err := rt.node(fromBase.Node)
	if err != nil {
		return err
	}
	toNode, err := rt.node(toBase.Node)
	if err != nil {
		return err
	}

	transfer := &model.Connection{
		ID:         rt.nextConnectionID(),
		Name:       req.Module + "_transfer",
		FromModule: req.Module,
		FromOutput: req.Output,
		ToModule:   cloneName,
		ToInput:    req.Input,
		Encryption: m.DefaultEncryption(),
	}

	from := conn.Endpoint{Node: fromNode, Module: fromBase, IOID: outID}
	to := conn.Endpoint{Node: toNode, Module: toBase, IOID: inID}
	if err := conn.Establish(ctx, transfer, &from, to); err != nil {
		return err
	}

	entryID, ok := fromBase.GetEntryID(req.Entry)
	if !ok {
		return fmt.Errorf("orchestrator: update: module %q has no entry %q", req.Module, req.Entry)
	}
	if _, err := fromNode.Call(ctx, fromBase.ID, entryID, nil); err != nil {
		return err
	}
	return nil
}

func (rt *Runtime) nextConnectionID() uint16 {
	rt.Config.ConnectionsCurrentID++
	return rt.Config.ConnectionsCurrentID
}

// registerModule wires a newly-constructed module driver (the update flow's
// clone) into the runtime's lookup tables and descriptor record set, ahead
// of Build/Deploy/Attest being run against it.
func (rt *Runtime) registerModule(name string, m modules.Module) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.modulesByName[name] = m
	r := descriptor.Record{}
	descriptor.MergeModuleBase(r, m.Base())
	rt.moduleRecords[name] = r
	rt.Config.Modules = append(rt.Config.Modules, r)
}

// replaceModule finalizes an update: the clone registered under the scratch
// key newName takes over oldName's identity. Both the clone's and the
// original's records carry "name" == oldName (see Update), so the original
// record is overwritten in place with the clone's fields rather than
// filtered out by name, and the clone's now-redundant record is dropped by
// map identity. Connections retargeted onto the scratch key by
// retargetConnections are rewritten back to oldName, since that scratch key
// stops being a valid lookup key once this call returns.
func (rt *Runtime) replaceModule(oldName, newName string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	clone, ok := rt.modulesByName[newName]
	if !ok {
		return
	}
	cloneRecord := rt.moduleRecords[newName]

	rt.modulesByName[oldName] = clone
	delete(rt.modulesByName, newName)
	delete(rt.moduleRecords, newName)

	oldRecord := rt.moduleRecords[oldName]
	clear(oldRecord)
	for k, v := range cloneRecord {
		oldRecord[k] = v
	}

	filtered := rt.Config.Modules[:0]
	for _, r := range rt.Config.Modules {
		if sameRecord(r, cloneRecord) {
			continue
		}
		filtered = append(filtered, r)
	}
	rt.Config.Modules = filtered

	for _, c := range rt.Config.Connections {
		if c.FromModule == newName {
			c.FromModule = oldName
		}
		if c.ToModule == newName {
			c.ToModule = oldName
		}
	}
}

// sameRecord reports whether a and b are the same underlying map. Needed
// because the clone's scratch-keyed record and the original's record it
// replaces end up with identical field values (both named oldName), so a
// value or field comparison can't tell which slice entry to drop.
func sameRecord(a, b descriptor.Record) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// retargetConnections re-establishes every connection touching oldName onto
// newName: clone the connection object with the endpoint retargeted, drop
// the original, and run it through Establish again.
func (rt *Runtime) retargetConnections(ctx context.Context, oldName, newName string) error {
	var retargeted []*model.Connection
	var kept []*model.Connection
	for _, c := range rt.Config.Connections {
		if c.FromModule != oldName && c.ToModule != oldName {
			kept = append(kept, c)
			continue
		}
		clone := *c
		clone.Established = false
		clone.Key = nil
		clone.Nonce = 0
		if clone.FromModule == oldName {
			clone.FromModule = newName
		}
		if clone.ToModule == oldName {
			clone.ToModule = newName
		}
		retargeted = append(retargeted, &clone)
	}

	rt.Config.Connections = append(kept, retargeted...)
	for _, c := range retargeted {
		if err := rt.connectOne(ctx, c.Name); err != nil {
			return err
		}
	}
	return nil
}
