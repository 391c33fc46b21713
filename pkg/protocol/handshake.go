package protocol

import "github.com/vango-dev/vtree/pkg/vdom"

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeServerBusy      HandshakeStatus = 0x04
	HandshakeInvalidFormat   HandshakeStatus = 0x06
	HandshakeInternalError   HandshakeStatus = 0x08
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the protocol version spoken by this package.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking v can talk to this version.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is the first frame a renderer sends.
type ClientHello struct {
	Version ProtocolVersion
	LastSeq uint64 // Last edit script applied; 0 for a fresh renderer
}

// ServerHello is the host's reply to ClientHello.
type ServerHello struct {
	Status     HandshakeStatus
	Root       vdom.ScopeID
	NextSeq    uint64 // Seq of the next edit script the host will send
	ServerTime uint64 // Unix milliseconds
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoderWithCap(12)
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteUvarint(ch.LastSeq)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	lastSeq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &ClientHello{
		Version: ProtocolVersion{Major: major, Minor: minor},
		LastSeq: lastSeq,
	}, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoderWithCap(24)
	e.WriteByte(byte(sh.Status))
	e.WriteUvarint(uint64(sh.Root))
	e.WriteUvarint(sh.NextSeq)
	e.WriteUint64(sh.ServerTime)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	root, err := d.ReadUint32Varint()
	if err != nil {
		return nil, err
	}
	nextSeq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	serverTime, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &ServerHello{
		Status:     HandshakeStatus(status),
		Root:       vdom.ScopeID(root),
		NextSeq:    nextSeq,
		ServerTime: serverTime,
	}, nil
}

// NewClientHello creates a ClientHello for the current version.
func NewClientHello(lastSeq uint64) *ClientHello {
	return &ClientHello{Version: CurrentVersion, LastSeq: lastSeq}
}

// NewServerHelloError creates a ServerHello with an error status.
func NewServerHelloError(status HandshakeStatus) *ServerHello {
	return &ServerHello{Status: status}
}
