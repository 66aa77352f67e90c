package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/conn"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
)

// Connect fans out over the target connections (sequentially if inOrder,
// otherwise concurrently) with no priority pass, skipping
// already-established connections.
func (rt *Runtime) Connect(ctx context.Context, inOrder bool, only string) error {
	names := rt.targetConnections(only)
	return fanOut(ctx, names, inOrder, rt.connectOne)
}

func (rt *Runtime) targetConnections(only string) []string {
	if only != "" {
		return []string{only}
	}
	names := make([]string, 0, len(rt.Config.Connections))
	for _, c := range rt.Config.Connections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func (rt *Runtime) findConnection(name string) (*model.Connection, error) {
	for _, c := range rt.Config.Connections {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("orchestrator: unknown connection %q", name)
}

func (rt *Runtime) connectOne(ctx context.Context, name string) error {
	c, err := rt.findConnection(name)
	if err != nil {
		return err
	}
	if c.Established {
		return nil
	}

	toEndpoint, err := rt.resolveToEndpoint(c)
	if err != nil {
		return err
	}

	var fromEndpoint *conn.Endpoint
	if !c.Direct {
		ep, err := rt.resolveFromEndpoint(c)
		if err != nil {
			return err
		}
		fromEndpoint = &ep
	}

	if err := conn.Establish(ctx, c, fromEndpoint, toEndpoint); err != nil {
		return err
	}

	rt.persistModule(c.ToModule)
	if !c.Direct {
		rt.persistModule(c.FromModule)
	}
	return nil
}

// Register implements the periodic-event registration policy: resolves the
// owning module's entry id and node, then calls RegisterPeriodicEvent.
// Already-established events are skipped.
func (rt *Runtime) Register(ctx context.Context, only string) error {
	names := rt.targetEvents(only)
	return fanOut(ctx, names, false, rt.registerOne)
}

func (rt *Runtime) targetEvents(only string) []string {
	if only != "" {
		return []string{only}
	}
	names := make([]string, 0, len(rt.Config.PeriodicEvents))
	for _, ev := range rt.Config.PeriodicEvents {
		names = append(names, ev.Name)
	}
	sort.Strings(names)
	return names
}

func (rt *Runtime) findEvent(name string) (*model.PeriodicEvent, error) {
	for _, ev := range rt.Config.PeriodicEvents {
		if ev.Name == name {
			return ev, nil
		}
	}
	return nil, fmt.Errorf("orchestrator: unknown event %q", name)
}

func (rt *Runtime) registerOne(ctx context.Context, name string) error {
	ev, err := rt.findEvent(name)
	if err != nil {
		return err
	}
	if ev.Established {
		return nil
	}

	m, err := rt.module(ev.Module)
	if err != nil {
		return err
	}
	base := m.Base()
	entryID, ok := base.GetEntryID(ev.Entry)
	if !ok {
		return fmt.Errorf("orchestrator: event %q: module %q has no entry %q", name, ev.Module, ev.Entry)
	}
	node, err := rt.node(base.Node)
	if err != nil {
		return err
	}

	return conn.RegisterPeriodicEvent(ctx, ev, node, base, entryID)
}

func (rt *Runtime) resolveToEndpoint(c *model.Connection) (conn.Endpoint, error) {
	m, err := rt.module(c.ToModule)
	if err != nil {
		return conn.Endpoint{}, err
	}
	node, err := rt.node(m.Base().Node)
	if err != nil {
		return conn.Endpoint{}, err
	}

	var ioID uint16
	var ok bool
	if c.IsRequest() {
		ioID, ok = m.Base().GetHandlerID(c.ToHandler)
	} else {
		ioID, ok = m.Base().GetInputID(c.ToInput)
	}
	if !ok {
		return conn.Endpoint{}, fmt.Errorf("orchestrator: connection %q: cannot resolve to-side endpoint", c.Name)
	}
	return conn.Endpoint{Node: node, Module: m.Base(), IOID: ioID}, nil
}

func (rt *Runtime) resolveFromEndpoint(c *model.Connection) (conn.Endpoint, error) {
	m, err := rt.module(c.FromModule)
	if err != nil {
		return conn.Endpoint{}, err
	}
	node, err := rt.node(m.Base().Node)
	if err != nil {
		return conn.Endpoint{}, err
	}

	var ioID uint16
	var ok bool
	if c.FromRequest != "" {
		ioID, ok = m.Base().GetRequestID(c.FromRequest)
	} else {
		ioID, ok = m.Base().GetOutputID(c.FromOutput)
	}
	if !ok {
		return conn.Endpoint{}, fmt.Errorf("orchestrator: connection %q: cannot resolve from-side endpoint", c.Name)
	}
	return conn.Endpoint{Node: node, Module: m.Base(), IOID: ioID}, nil
}
