package wire

import (
	"encoding/binary"

	"github.com/howeyc/crc16"
)

// crcTable is the standard CRC-16/CCITT table (poly 0x1021, init 0xFFFF,
// no final XOR, MSB-first).
var crcTable = crc16.MakeTable(crc16.CCITT)

// ChecksumOffset is the byte offset of the checksum field within the
// serialized header.
const ChecksumOffset = 14

// checksumRegion returns the header bytes[0:ChecksumOffset] concatenated
// with payload, the exact region CRC-16/CCITT is computed over.
func checksumRegion(headerBytes []byte, payload []byte) []byte {
	region := make([]byte, ChecksumOffset+len(payload))
	copy(region, headerBytes[:ChecksumOffset])
	copy(region[ChecksumOffset:], payload)
	return region
}

// ComputeAndSetCRC computes the CRC-16/CCITT over headerBytes[0:HeaderSize]
// followed by payload[0:payloadLen], writes it big-endian into
// headerBytes[HeaderSize:WireHeaderSize], and returns the computed value.
func ComputeAndSetCRC(headerBytes []byte, payload []byte, payloadLen int) uint16 {
	crc := crc16.Checksum(checksumRegion(headerBytes, payload[:payloadLen]), crcTable)
	binary.BigEndian.PutUint16(headerBytes[ChecksumOffset:ChecksumOffset+2], crc)
	return crc
}

// Verify recomputes the CRC over the same region and compares it against
// the checksum slot already present in headerBytes.
func Verify(headerBytes []byte, payload []byte, payloadLen int) bool {
	want := binary.BigEndian.Uint16(headerBytes[ChecksumOffset : ChecksumOffset+2])
	got := crc16.Checksum(checksumRegion(headerBytes, payload[:payloadLen]), crcTable)
	return want == got
}
