package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Kind identifies the type of a control message. The ordinals are wire
// contract shared with external tooling clients and must never be
// reordered. Several kinds are retained only so the ordinals of live kinds
// stay stable; they are accepted and ignored.
type Kind uint32

const (
	KindNone Kind = iota
	KindPing
	KindPong
	KindPlay
	KindStop
	KindPause
	KindUnpause
	KindBuild // legacy, ignored
	KindRefresh
	KindInfo     // legacy, ignored
	KindOpenFile // legacy, ignored
	KindVersion
	KindUpdatePackage // legacy, ignored
	KindProjectPath
	KindTcp // legacy, ignored
	KindExecuteTests
	KindRetrieveTestList
	KindShowUsage
)

const (
	// HeaderSize is the fixed framing of every datagram:
	// [Kind:4][PayloadLen:4], big-endian.
	HeaderSize = 8

	// MaxMessageSize bounds a whole datagram. Control payloads are short
	// strings; anything larger is rejected as malformed.
	MaxMessageSize = 8192

	// MaxPayloadSize is the largest payload that fits in one datagram.
	MaxPayloadSize = MaxMessageSize - HeaderSize
)

// Message represents one decoded inbound datagram. It is immutable once
// decoded. Origin is the datagram's source address and serves both as the
// registry key and as the reply target.
type Message struct {
	Kind    Kind
	Origin  *net.UDPAddr
	Payload string
}

// Encode serializes a message kind and UTF-8 payload into a single
// datagram: 4-byte kind ordinal, 4-byte payload length, payload bytes.
func Encode(kind Kind, payload string) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (maximum %d)", len(payload), MaxPayloadSize)
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(kind))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	return buf, nil
}

// Decode parses a complete datagram into a kind and payload. Unknown kind
// ordinals decode successfully; deciding what to do with them is the
// dispatcher's concern.
func Decode(data []byte) (Kind, string, error) {
	if len(data) < HeaderSize {
		return KindNone, "", fmt.Errorf("datagram too short: expected at least %d bytes, got %d", HeaderSize, len(data))
	}

	if len(data) > MaxMessageSize {
		return KindNone, "", fmt.Errorf("datagram too large: %d bytes (maximum %d)", len(data), MaxMessageSize)
	}

	kind := Kind(binary.BigEndian.Uint32(data[0:4]))
	payloadLen := binary.BigEndian.Uint32(data[4:8])

	if int(payloadLen) != len(data)-HeaderSize {
		return KindNone, "", fmt.Errorf("payload length mismatch: header says %d bytes, got %d bytes",
			payloadLen, len(data)-HeaderSize)
	}

	return kind, string(data[HeaderSize:]), nil
}

// IsLegacy reports whether the kind is retained only for wire
// compatibility. No behavior should be inferred from legacy kind names.
func (k Kind) IsLegacy() bool {
	switch k {
	case KindBuild, KindInfo, KindOpenFile, KindUpdatePackage, KindTcp:
		return true
	}
	return false
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindPlay:
		return "Play"
	case KindStop:
		return "Stop"
	case KindPause:
		return "Pause"
	case KindUnpause:
		return "Unpause"
	case KindBuild:
		return "Build"
	case KindRefresh:
		return "Refresh"
	case KindInfo:
		return "Info"
	case KindOpenFile:
		return "OpenFile"
	case KindVersion:
		return "Version"
	case KindUpdatePackage:
		return "UpdatePackage"
	case KindProjectPath:
		return "ProjectPath"
	case KindTcp:
		return "Tcp"
	case KindExecuteTests:
		return "ExecuteTests"
	case KindRetrieveTestList:
		return "RetrieveTestList"
	case KindShowUsage:
		return "ShowUsage"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(k))
	}
}

// String returns a human-readable representation of the message.
func (m *Message) String() string {
	origin := "<nil>"
	if m.Origin != nil {
		origin = m.Origin.String()
	}
	return fmt.Sprintf("Message{Kind:%s, Origin:%s, PayloadLen:%d}", m.Kind, origin, len(m.Payload))
}
