// Package wire implements the fixed-layout framed protocol spoken between
// facedetectd and faceclient: a 32-bit magic, an 8-bit opcode, and one or two
// length-prefixed byte payloads. All multi-byte integers are little-endian on
// the wire regardless of host byte order.
package wire

import (
	"encoding/binary"
	"errors"
)

// Magic identifies a well-formed frame prefix.
const Magic uint32 = 0x23107231

// Op is the one-byte operation code carried by every frame.
type Op uint8

const (
	OpDetect  Op = 0 // request: detect faces
	OpReplace Op = 1 // request: detect and replace faces
	OpImage   Op = 2 // response: image payload
	OpError   Op = 3 // response: UTF-8 error text, no trailing newline
)

var (
	ErrBadMagic  = errors.New("wire: bad magic prefix")
	ErrBadOp     = errors.New("wire: unknown operation")
	ErrZeroImage = errors.New("wire: image is 0 bytes")
	ErrTooLarge  = errors.New("wire: image too large")
)

// Frame is one complete request or response message.
type Frame struct {
	Op       Op
	Payload1 []byte
	Payload2 []byte // only present on a request with Op == OpReplace
}

// EncodeMagic returns the 4-byte little-endian magic prefix.
func EncodeMagic() [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], Magic)
	return b
}

// EncodeLen returns the 4-byte little-endian encoding of n.
func EncodeLen(n uint32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	return b
}

// DecodeLen decodes a 4-byte little-endian length field.
func DecodeLen(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
