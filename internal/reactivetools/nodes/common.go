package nodes

import (
	"context"
	"net"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/wire"
)

// Common implements the backend-independent half of Node: every command
// except Deploy, which differs per backend's Load payload and response.
// Backend drivers embed Common and only add Deploy (and any key-handling
// extras) of their own.
type Common struct {
	Base_ *model.NodeBase
}

func (c Common) Base() *model.NodeBase { return c.Base_ }

func (c Common) reactiveAddr() string {
	return c.Base_.Addr(c.Base_.ReactivePort)
}

func (c Common) SetKey(ctx context.Context, moduleID uint16, arg []byte) error {
	_, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdCall,
		Payload: wire.PackCall(moduleID, uint16(wire.EntrySetKey), arg),
	})
	return err
}

func (c Common) Call(ctx context.Context, moduleID, entryID uint16, arg []byte) ([]byte, error) {
	result, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdCall,
		Payload: wire.PackCall(moduleID, entryID, arg),
	})
	if err != nil {
		return nil, err
	}
	return result.Payload, nil
}

func (c Common) RegisterEntrypoint(ctx context.Context, moduleID, entryID uint16, freqMs uint32) error {
	_, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdRegisterEntrypoint,
		Payload: wire.PackRegisterEntrypoint(moduleID, entryID, freqMs),
	})
	return err
}

func (c Common) Connect(ctx context.Context, connID, toModuleID uint16, isLocal bool, toPort uint16, toIP net.IP) error {
	_, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdConnect,
		Payload: wire.PackConnect(connID, toModuleID, isLocal, toPort, toIP),
	})
	return err
}

func (c Common) Output(ctx context.Context, toModuleID, connID uint16, sealed []byte) error {
	_, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdRemoteOutput,
		Payload: wire.PackRemote(toModuleID, connID, sealed),
	})
	return err
}

func (c Common) Request(ctx context.Context, toModuleID, connID uint16, sealed []byte) ([]byte, error) {
	result, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdRemoteRequest,
		Payload: wire.PackRemote(toModuleID, connID, sealed),
	})
	if err != nil {
		return nil, err
	}
	return result.Payload, nil
}

func (c Common) DisableModule(ctx context.Context, moduleID uint16, nonce uint16, sealed []byte) error {
	_, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdCall,
		Payload: wire.PackCall(moduleID, uint16(wire.EntryDisable), wire.PackDisableArg(nonce, sealed)),
	})
	return err
}

func (c Common) Reset(ctx context.Context) error {
	_, err := SendCommand(ctx, c.reactiveAddr(), wire.CommandMessage{
		Code:    wire.CmdReset,
		Payload: wire.PackReset(),
	})
	return err
}
