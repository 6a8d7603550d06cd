package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Header is the fixed-layout RTVT packet header: sequence number, frame
// identity and type, fragmentation bookkeeping, payload length, and a
// trailing checksum. All multi-byte fields are big-endian on the wire.
type Header struct {
	SeqNum      uint32
	FrameID     uint16
	FrameType   FrameType
	Flags       Flags
	FragIndex   uint16
	TotalFrags  uint16
	PayloadSize uint16
	Checksum    uint16
}

// Serialize writes h's fields into a new WireHeaderSize-byte buffer, big-endian.
// The checksum slot is left zero; call ComputeAndSetCRC to fill it in.
func Serialize(h Header) []byte {
	b := make([]byte, WireHeaderSize)
	binary.BigEndian.PutUint32(b[0:4], h.SeqNum)
	binary.BigEndian.PutUint16(b[4:6], h.FrameID)
	b[6] = byte(h.FrameType)
	b[7] = byte(h.Flags)
	binary.BigEndian.PutUint16(b[8:10], h.FragIndex)
	binary.BigEndian.PutUint16(b[10:12], h.TotalFrags)
	binary.BigEndian.PutUint16(b[12:14], h.PayloadSize)
	// b[14:16] (checksum) stays zero.
	return b
}

// Deserialize reads a Header out of b, which must be at least WireHeaderSize
// bytes long. It performs no validation and never checks the checksum.
func Deserialize(b []byte) (Header, error) {
	if len(b) < WireHeaderSize {
		return Header{}, fmt.Errorf("wire: short header, got %d bytes want %d", len(b), WireHeaderSize)
	}
	return Header{
		SeqNum:      binary.BigEndian.Uint32(b[0:4]),
		FrameID:     binary.BigEndian.Uint16(b[4:6]),
		FrameType:   FrameType(b[6]),
		Flags:       Flags(b[7]),
		FragIndex:   binary.BigEndian.Uint16(b[8:10]),
		TotalFrags:  binary.BigEndian.Uint16(b[10:12]),
		PayloadSize: binary.BigEndian.Uint16(b[12:14]),
		Checksum:    binary.BigEndian.Uint16(b[14:16]),
	}, nil
}

// Validate enforces the header invariants: frag_index within bounds, at
// least one fragment, payload within MTU, and a known frame type. Every
// violation is accumulated rather than reported one at a time, so callers
// inspecting a failure can log a complete diagnosis.
func Validate(h Header, mtu int) error {
	var errs error

	if h.TotalFrags == 0 {
		errs = multierror.Append(errs, fmt.Errorf("wire: total_frags is zero"))
	} else if h.FragIndex >= h.TotalFrags {
		errs = multierror.Append(errs, fmt.Errorf(
			"wire: frag_index %d >= total_frags %d", h.FragIndex, h.TotalFrags))
	}

	if maxPayload := mtu - HeaderSize; maxPayload < 0 || int(h.PayloadSize) > maxPayload {
		errs = multierror.Append(errs, fmt.Errorf(
			"wire: payload_size %d exceeds mtu-header_size %d", h.PayloadSize, mtu-HeaderSize))
	}

	if !h.FrameType.Valid() {
		errs = multierror.Append(errs, fmt.Errorf("wire: unknown frame_type 0x%02x", uint8(h.FrameType)))
	}

	return errs
}
