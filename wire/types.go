// Package wire implements the RTVT packet header: its fixed big-endian
// layout, CRC-16/CCITT checksum, and the fragmentation arithmetic derived
// from frame size and MTU.
package wire

import "fmt"

// FrameType identifies what a packet's payload carries. Values below 0x10
// are media frame types; values in [0x10, 0x18) are control types.
type FrameType uint8

const (
	// FrameI is a self-contained media frame, retransmitted per-fragment.
	FrameI FrameType = 0x01
	// FrameP is a media frame dependent on a prior I-frame; dropped on loss.
	FrameP FrameType = 0x02
	// FrameSPS carries a sequence parameter set.
	FrameSPS FrameType = 0x03
	// FramePPS carries a picture parameter set.
	FramePPS FrameType = 0x04
	// FrameAudio carries an audio frame.
	FrameAudio FrameType = 0x05

	// FrameConnect is the RX-initiated handshake request.
	FrameConnect FrameType = 0x10
	// FrameConnected is the TX handshake reply.
	FrameConnected FrameType = 0x11
	// FrameDisconnect tears the connection down.
	FrameDisconnect FrameType = 0x12
	// FrameAck acknowledges a frame_id (and, for I-fragments, a frag_index).
	FrameAck FrameType = 0x13
	// FrameHeartbeat is the RX liveness probe.
	FrameHeartbeat FrameType = 0x14
	// FrameUser carries a reliable user datagram.
	FrameUser FrameType = 0x15
	// FrameStart requests the media source open, optionally naming a URL.
	FrameStart FrameType = 0x16
	// FrameStop requests the media source close.
	FrameStop FrameType = 0x17
)

// IsMedia reports whether t is one of the media frame types (I/P/SPS/PPS/A).
func (t FrameType) IsMedia() bool {
	return t >= FrameI && t <= FrameAudio
}

// IsControl reports whether t is one of the control frame types.
func (t FrameType) IsControl() bool {
	return t >= FrameConnect && t <= FrameStop
}

// Valid reports whether t is one of the enumerated media or control values.
func (t FrameType) Valid() bool {
	return t.IsMedia() || t.IsControl()
}

func (t FrameType) String() string {
	switch t {
	case FrameI:
		return "I"
	case FrameP:
		return "P"
	case FrameSPS:
		return "SPS"
	case FramePPS:
		return "PPS"
	case FrameAudio:
		return "A"
	case FrameConnect:
		return "CONNECT"
	case FrameConnected:
		return "CONNECTED"
	case FrameDisconnect:
		return "DISCONNECT"
	case FrameAck:
		return "ACK"
	case FrameHeartbeat:
		return "HEARTBEAT"
	case FrameUser:
		return "USER"
	case FrameStart:
		return "START"
	case FrameStop:
		return "STOP"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// Flags is the one-byte header flag bitfield.
type Flags uint8

const (
	// FlagLastFrag marks the final fragment of a frame.
	FlagLastFrag Flags = 1 << 0
	// FlagRetrans marks a packet as a retransmission.
	FlagRetrans Flags = 1 << 1
)

// Has returns true if every bit of flag is set in f.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

const (
	// HeaderSize is the byte count of the 14 fixed fields from seq_num
	// through payload_size, used throughout the fragmentation and
	// MTU-budget arithmetic. The 2-byte checksum trailer is appended on
	// the wire but is not counted against this constant — see DESIGN.md.
	HeaderSize = 14

	// WireHeaderSize is the total number of header bytes actually placed on
	// the wire, including the checksum trailer at [HeaderSize:WireHeaderSize).
	WireHeaderSize = HeaderSize + 2

	// ControlFrameID is reserved for handshake/heartbeat/disconnect ACKs.
	ControlFrameID = 0
)
