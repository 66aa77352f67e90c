package conn_test

import (
	"context"
	"net"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/conn"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/nodes"
)

// fakeNode is a hand-rolled nodes.Node that just records calls; no wire
// traffic actually happens.
type fakeNode struct {
	base *model.NodeBase

	setKeyCalls []uint16 // moduleIDs SetKey was invoked for
	connectCall *connectArgs
	registerArg *registerArgs
}

type connectArgs struct {
	connID, toModuleID uint16
	isLocal            bool
	toPort             uint16
	toIP               net.IP
}

type registerArgs struct {
	moduleID, entryID uint16
	freqMs            uint32
}

func (f *fakeNode) Base() *model.NodeBase { return f.base }

func (f *fakeNode) Deploy(ctx context.Context, req nodes.DeployRequest) (uint16, []byte, error) {
	return 0, nil, nil
}

func (f *fakeNode) SetKey(ctx context.Context, moduleID uint16, arg []byte) error {
	f.setKeyCalls = append(f.setKeyCalls, moduleID)
	return nil
}

func (f *fakeNode) Call(ctx context.Context, moduleID, entryID uint16, arg []byte) ([]byte, error) {
	return nil, nil
}

func (f *fakeNode) RegisterEntrypoint(ctx context.Context, moduleID, entryID uint16, freqMs uint32) error {
	f.registerArg = &registerArgs{moduleID, entryID, freqMs}
	return nil
}

func (f *fakeNode) Connect(ctx context.Context, connID, toModuleID uint16, isLocal bool, toPort uint16, toIP net.IP) error {
	f.connectCall = &connectArgs{connID, toModuleID, isLocal, toPort, toIP}
	return nil
}

func (f *fakeNode) Output(ctx context.Context, toModuleID, connID uint16, sealed []byte) error {
	return nil
}

func (f *fakeNode) Request(ctx context.Context, toModuleID, connID uint16, sealed []byte) ([]byte, error) {
	return nil, nil
}

func (f *fakeNode) DisableModule(ctx context.Context, moduleID uint16, nonce uint16, sealed []byte) error {
	return nil
}

func (f *fakeNode) Reset(ctx context.Context) error { return nil }

func attestedModule(name, node string, id uint16) *model.ModuleBase {
	return &model.ModuleBase{
		Name:     name,
		Node:     node,
		Deployed: true,
		Attested: true,
		ID:       id,
		Key:      make([]byte, 16),
	}
}

func TestEstablish_AlreadyEstablished(t *testing.T) {
	c := &model.Connection{Name: "c1", Established: true}
	to := conn.Endpoint{Node: &fakeNode{base: &model.NodeBase{}}, Module: attestedModule("b", "n2", 2)}

	if err := conn.Establish(context.Background(), c, nil, to); err == nil {
		t.Fatal("expected error for an already-established connection")
	}
}

func TestEstablish_ToModuleNotAttested(t *testing.T) {
	c := &model.Connection{Name: "c1"}
	toModule := attestedModule("b", "n2", 2)
	toModule.Attested = false
	to := conn.Endpoint{Node: &fakeNode{base: &model.NodeBase{}}, Module: toModule}

	if err := conn.Establish(context.Background(), c, nil, to); err == nil {
		t.Fatal("expected error when to-module is not attested")
	}
}

func TestEstablish_FromModuleNotAttested(t *testing.T) {
	c := &model.Connection{Name: "c1"}
	fromModule := attestedModule("a", "n1", 1)
	fromModule.Attested = false
	from := &conn.Endpoint{Node: &fakeNode{base: &model.NodeBase{}}, Module: fromModule}
	to := conn.Endpoint{Node: &fakeNode{base: &model.NodeBase{}}, Module: attestedModule("b", "n2", 2)}

	if err := conn.Establish(context.Background(), c, from, to); err == nil {
		t.Fatal("expected error when from-module is not attested")
	}
}

func TestEstablish_Direct(t *testing.T) {
	c := &model.Connection{Name: "direct1", ID: 9, Direct: true}
	toNode := &fakeNode{base: &model.NodeBase{}}
	toModule := attestedModule("b", "n2", 2)
	to := conn.Endpoint{Node: toNode, Module: toModule, IOID: 3}

	if err := conn.Establish(context.Background(), c, nil, to); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if !c.Established {
		t.Error("connection should be marked established")
	}
	if len(c.Key) != 16 {
		t.Errorf("connection key = %d bytes, want 16", len(c.Key))
	}
	if c.Nonce != 0 {
		t.Errorf("connection nonce = %d, want 0", c.Nonce)
	}
	if len(toNode.setKeyCalls) != 1 || toNode.setKeyCalls[0] != toModule.ID {
		t.Errorf("SetKey calls = %v, want exactly one call for module %d", toNode.setKeyCalls, toModule.ID)
	}
	if toNode.connectCall != nil {
		t.Error("a direct connection must never issue Connect: there is no from-side EM")
	}
}

func TestEstablish_NonDirect(t *testing.T) {
	c := &model.Connection{Name: "c1", ID: 9}
	fromNode := &fakeNode{base: &model.NodeBase{}}
	toNode := &fakeNode{base: &model.NodeBase{
		ReactivePort: 8080,
		IPAddress:    net.ParseIP("10.0.0.5"),
	}}
	fromModule := attestedModule("a", "n1", 1)
	toModule := attestedModule("b", "n2", 2)

	from := &conn.Endpoint{Node: fromNode, Module: fromModule, IOID: 4}
	to := conn.Endpoint{Node: toNode, Module: toModule, IOID: 3}

	if err := conn.Establish(context.Background(), c, from, to); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if !c.Established {
		t.Error("connection should be marked established")
	}
	if len(fromNode.setKeyCalls) != 1 || fromNode.setKeyCalls[0] != fromModule.ID {
		t.Errorf("from-side SetKey calls = %v, want exactly one call for module %d", fromNode.setKeyCalls, fromModule.ID)
	}
	if len(toNode.setKeyCalls) != 1 || toNode.setKeyCalls[0] != toModule.ID {
		t.Errorf("to-side SetKey calls = %v, want exactly one call for module %d", toNode.setKeyCalls, toModule.ID)
	}
	if fromNode.connectCall == nil {
		t.Fatal("expected Connect to be issued on the from-side node")
	}
	if fromNode.connectCall.connID != c.ID || fromNode.connectCall.toModuleID != toModule.ID {
		t.Errorf("Connect args = %+v, want connID=%d toModuleID=%d", fromNode.connectCall, c.ID, toModule.ID)
	}
	if fromNode.connectCall.toPort != 8080 || !fromNode.connectCall.toIP.Equal(net.ParseIP("10.0.0.5")) {
		t.Errorf("Connect addressed the wrong to-node: %+v", fromNode.connectCall)
	}
	if fromNode.connectCall.isLocal {
		t.Error("from and to modules live on different nodes, isLocal should be false")
	}
}

func TestEstablish_IsLocalWhenSameNode(t *testing.T) {
	c := &model.Connection{Name: "c1", ID: 1}
	node := &fakeNode{base: &model.NodeBase{ReactivePort: 8080, IPAddress: net.ParseIP("10.0.0.5")}}
	fromModule := attestedModule("a", "n1", 1)
	toModule := attestedModule("b", "n1", 2) // same node name as fromModule

	from := &conn.Endpoint{Node: node, Module: fromModule}
	to := conn.Endpoint{Node: node, Module: toModule}

	if err := conn.Establish(context.Background(), c, from, to); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if !node.connectCall.isLocal {
		t.Error("from and to modules share a node, isLocal should be true")
	}
}

func TestRegisterPeriodicEvent_AlreadyEstablished(t *testing.T) {
	ev := &model.PeriodicEvent{Name: "tick", Established: true}
	node := &fakeNode{base: &model.NodeBase{}}
	module := attestedModule("a", "n1", 1)

	if err := conn.RegisterPeriodicEvent(context.Background(), ev, node, module, 5); err == nil {
		t.Fatal("expected error for an already-established event")
	}
}

func TestRegisterPeriodicEvent_ModuleNotAttested(t *testing.T) {
	ev := &model.PeriodicEvent{Name: "tick"}
	node := &fakeNode{base: &model.NodeBase{}}
	module := attestedModule("a", "n1", 1)
	module.Attested = false

	if err := conn.RegisterPeriodicEvent(context.Background(), ev, node, module, 5); err == nil {
		t.Fatal("expected error when the module is not attested")
	}
}

func TestRegisterPeriodicEvent_Success(t *testing.T) {
	ev := &model.PeriodicEvent{Name: "tick", FrequencyMs: 1000}
	node := &fakeNode{base: &model.NodeBase{}}
	module := attestedModule("a", "n1", 1)

	if err := conn.RegisterPeriodicEvent(context.Background(), ev, node, module, 5); err != nil {
		t.Fatalf("RegisterPeriodicEvent: %v", err)
	}
	if !ev.Established {
		t.Error("event should be marked established")
	}
	if node.registerArg == nil || node.registerArg.moduleID != module.ID || node.registerArg.entryID != 5 || node.registerArg.freqMs != 1000 {
		t.Errorf("RegisterEntrypoint args = %+v, want moduleID=%d entryID=5 freqMs=1000", node.registerArg, module.ID)
	}
}

var _ nodes.Node = (*fakeNode)(nil)
