// Package wire implements the EM binary command protocol: frame encoding,
// the fixed command-code table and the payload layouts in use for Connect,
// Call, SetKey, RegisterEntrypoint, RemoteOutput, RemoteRequest, Disable,
// Reset and Load.
package wire

// Command is the outer selector of a CommandMessage sent to an EM's reactive
// or deploy port.
type Command uint16

// Command codes. Exact numeric identity is fixed by the EM implementation;
// values below match the upstream reactive-tools/libreactive wire protocol.
const (
	CmdConnect             Command = 0
	CmdCall                Command = 1
	CmdSetKey              Command = 2
	CmdRegisterEntrypoint  Command = 3
	CmdRemoteOutput        Command = 4
	CmdRemoteRequest       Command = 5
	CmdReset               Command = 6
	CmdLoad                Command = 7
)

// Entrypoint is the inner selector carried inside a Call payload. The
// module's ABI reserves these low-numbered entrypoints for orchestrator use.
type Entrypoint uint16

const (
	EntrySetKey  Entrypoint = 0
	EntryAttest  Entrypoint = 1
	EntryDisable Entrypoint = 2
)

// ResultCode is the status carried in a ReactiveResult.
type ResultCode uint16

// Ok is the only success code; any other value is an error surfaced to the
// caller as a wire.Error.
const Ok ResultCode = 0
