package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// CommandMessage is the outer frame sent to an EM: code(u16) ‖ length(u16) ‖
// payload. Integers are big-endian.
type CommandMessage struct {
	Code    Command
	Payload []byte
}

// Encode serialises the frame for writing to a TCP connection.
func (m CommandMessage) Encode() []byte {
	buf := make([]byte, 4+len(m.Payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(m.Code))
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(m.Payload)))
	copy(buf[4:], m.Payload)
	return buf
}

// WriteTo writes the frame to w.
func (m CommandMessage) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.Encode())
	return int64(n), err
}

// ReactiveResult is the response frame from an EM: code(u16) ‖ length(u16)
// ‖ payload. code == Ok (0) is success; any other value is an error.
type ReactiveResult struct {
	Code    ResultCode
	Payload []byte
}

// ReadReactiveResult reads one ReactiveResult frame from r.
func ReadReactiveResult(r io.Reader) (ReactiveResult, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return ReactiveResult{}, fmt.Errorf("read result header: %w", err)
	}
	code := ResultCode(binary.BigEndian.Uint16(hdr[0:2]))
	length := binary.BigEndian.Uint16(hdr[2:4])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return ReactiveResult{}, fmt.Errorf("read result payload: %w", err)
		}
	}
	return ReactiveResult{Code: code, Payload: payload}, nil
}

// packIP returns the EM wire encoding of an IP address: 4 bytes for an IPv4
// address, 16 bytes for IPv6.
func packIP(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

// PackConnect builds the Connect command payload:
// conn_id(u16) ‖ to_module_id(u16) ‖ is_local(u8) ‖ to_reactive_port(u16) ‖ to_ip(packed).
func PackConnect(connID, toModuleID uint16, isLocal bool, toReactivePort uint16, toIP net.IP) []byte {
	ipBytes := packIP(toIP)
	buf := make([]byte, 2+2+1+2+len(ipBytes))
	binary.BigEndian.PutUint16(buf[0:2], connID)
	binary.BigEndian.PutUint16(buf[2:4], toModuleID)
	if isLocal {
		buf[4] = 1
	}
	binary.BigEndian.PutUint16(buf[5:7], toReactivePort)
	copy(buf[7:], ipBytes)
	return buf
}

// PackCall builds the Call command payload: module_id(u16) ‖ entry_id(u16) ‖ arg?.
func PackCall(moduleID uint16, entryID uint16, arg []byte) []byte {
	buf := make([]byte, 4+len(arg))
	binary.BigEndian.PutUint16(buf[0:2], moduleID)
	binary.BigEndian.PutUint16(buf[2:4], entryID)
	copy(buf[4:], arg)
	return buf
}

// BuildSetKeyAD builds the associated data bound into the SetKey AEAD tag:
// encryption(u8) ‖ conn_id(u16) ‖ io_id(u16) ‖ nonce(u16).
func BuildSetKeyAD(encryption uint8, connID, ioID, nonce uint16) []byte {
	buf := make([]byte, 1+2+2+2)
	buf[0] = encryption
	binary.BigEndian.PutUint16(buf[1:3], connID)
	binary.BigEndian.PutUint16(buf[3:5], ioID)
	binary.BigEndian.PutUint16(buf[5:7], nonce)
	return buf
}

// PackSetKeyArg builds the Call "arg" for a SetKey command: AD ‖ sealed,
// where sealed is AEAD(key=module_key, ad=AD, pt=conn_key).
func PackSetKeyArg(ad, sealed []byte) []byte {
	buf := make([]byte, 0, len(ad)+len(sealed))
	buf = append(buf, ad...)
	buf = append(buf, sealed...)
	return buf
}

// PackDisableArg builds the Call "arg" for a Disable command: nonce(u16) ‖
// sealed, where sealed is AEAD(key=module_key, ad=nonce, pt=nonce).
func PackDisableArg(nonce uint16, sealed []byte) []byte {
	buf := make([]byte, 2+len(sealed))
	binary.BigEndian.PutUint16(buf[0:2], nonce)
	copy(buf[2:], sealed)
	return buf
}

// PackRegisterEntrypoint builds the RegisterEntrypoint command payload:
// module_id(u16) ‖ entry_id(u16) ‖ freq_ms(u32).
func PackRegisterEntrypoint(moduleID, entryID uint16, freqMs uint32) []byte {
	buf := make([]byte, 2+2+4)
	binary.BigEndian.PutUint16(buf[0:2], moduleID)
	binary.BigEndian.PutUint16(buf[2:4], entryID)
	binary.BigEndian.PutUint32(buf[4:8], freqMs)
	return buf
}

// PackRemote builds the RemoteOutput/RemoteRequest command payload:
// to_module_id(u16) ‖ conn_id(u16) ‖ sealed, where sealed is
// AEAD(key=conn.key, ad=nonce(u16), pt=arg).
func PackRemote(toModuleID, connID uint16, sealed []byte) []byte {
	buf := make([]byte, 2+2+len(sealed))
	binary.BigEndian.PutUint16(buf[0:2], toModuleID)
	binary.BigEndian.PutUint16(buf[2:4], connID)
	copy(buf[4:], sealed)
	return buf
}

// PackReset builds the (empty) Reset command payload.
func PackReset() []byte {
	return nil
}

// PackLoadNative builds the Load payload for the native and SGX-ELF-only
// cases: payload_len(u32) ‖ artefact_bytes.
func PackLoadNative(artefact []byte) []byte {
	buf := make([]byte, 4+len(artefact))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(artefact)))
	copy(buf[4:], artefact)
	return buf
}

// PackLoadSGX builds the SGX Load payload: sgxs_len(u32) ‖ sgxs ‖ sig_len(u32) ‖ sig.
func PackLoadSGX(sgxs, sig []byte) []byte {
	buf := make([]byte, 4+len(sgxs)+4+len(sig))
	off := 0
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(sgxs)))
	off += 4
	copy(buf[off:], sgxs)
	off += len(sgxs)
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(sig)))
	off += 4
	copy(buf[off:], sig)
	return buf
}

// PackLoadTrustZone builds the TrustZone Load payload:
// total_len(u32) ‖ module_id(u16) ‖ uuid(16 bytes) ‖ ta_bytes.
func PackLoadTrustZone(moduleID uint16, uuid [16]byte, ta []byte) []byte {
	inner := 2 + 16 + len(ta)
	buf := make([]byte, 4+inner)
	binary.BigEndian.PutUint32(buf[0:4], uint32(inner))
	binary.BigEndian.PutUint16(buf[4:6], moduleID)
	copy(buf[6:22], uuid[:])
	copy(buf[22:], ta)
	return buf
}

// PackLoadSancus builds the Sancus Load payload: name \0 ‖ vendor_id(u16) ‖ elf.
// The orchestrator-side framing (outer length prefix) is added by
// CommandMessage.Encode; this returns only the payload body.
func PackLoadSancus(name string, vendorID uint16, elf []byte) []byte {
	nameBytes := append([]byte(name), 0)
	buf := make([]byte, len(nameBytes)+2+len(elf))
	off := copy(buf, nameBytes)
	binary.BigEndian.PutUint16(buf[off:off+2], vendorID)
	off += 2
	copy(buf[off:], elf)
	return buf
}

// UnpackSancusDeployResult parses the Sancus Load response:
// module_id(u16) ‖ symbol_table_bytes.
func UnpackSancusDeployResult(payload []byte) (moduleID uint16, symbolTable []byte, err error) {
	if len(payload) < 2 {
		return 0, nil, fmt.Errorf("sancus deploy result too short: %d bytes", len(payload))
	}
	moduleID = binary.BigEndian.Uint16(payload[0:2])
	symbolTable = payload[2:]
	return moduleID, symbolTable, nil
}
