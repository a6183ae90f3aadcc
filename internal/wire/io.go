package wire

import (
	"io"

	"github.com/danmuck/faceguard/internal/netio"
)

// ReadMagic reads and validates the 4-byte magic prefix. A short read
// reports ErrShort (via the embedded netio error); a well-formed but wrong
// value reports ErrBadMagic.
func ReadMagic(r io.Reader) error {
	b, err := netio.ReadExact(r, 4)
	if err != nil {
		return err
	}
	if DecodeLen(b) != Magic {
		return ErrBadMagic
	}
	return nil
}

// ReadOp reads the one-byte operation code. It does not validate the range;
// callers distinguish request opcodes (0,1) from anything else themselves.
func ReadOp(r io.Reader) (Op, error) {
	b, err := netio.ReadExact(r, 1)
	if err != nil {
		return 0, err
	}
	return Op(b[0]), nil
}

// ReadLen reads a 4-byte little-endian length field.
func ReadLen(r io.Reader) (uint32, error) {
	b, err := netio.ReadExact(r, 4)
	if err != nil {
		return 0, err
	}
	return DecodeLen(b), nil
}

// ReadPayload reads exactly n bytes of payload.
func ReadPayload(r io.Reader, n uint32) ([]byte, error) {
	return netio.ReadExact(r, n)
}

// WriteResponse sends a full 9-byte-prefixed response frame: magic, op,
// len(payload), payload. Used for op=2 (image) and op=3 (error text)
// responses; nothing else in this protocol ever carries this prefix.
func WriteResponse(w io.Writer, op Op, payload []byte) error {
	magic := EncodeMagic()
	if err := netio.WriteExact(w, magic[:]); err != nil {
		return err
	}
	if err := netio.WriteExact(w, []byte{byte(op)}); err != nil {
		return err
	}
	length := EncodeLen(uint32(len(payload)))
	if err := netio.WriteExact(w, length[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return netio.WriteExact(w, payload)
}

// WriteError is a convenience wrapper for the common op=3 error response.
func WriteError(w io.Writer, message string) error {
	return WriteResponse(w, OpError, []byte(message))
}

// WriteRequest sends a request frame: magic, op, len1, payload1, and, when
// payload2 is non-nil, len2/payload2 immediately after. Only a replace
// request (op=1) ever carries a second payload.
func WriteRequest(w io.Writer, op Op, payload1, payload2 []byte) error {
	if err := WriteResponse(w, op, payload1); err != nil {
		return err
	}
	if payload2 == nil {
		return nil
	}
	length := EncodeLen(uint32(len(payload2)))
	if err := netio.WriteExact(w, length[:]); err != nil {
		return err
	}
	if len(payload2) == 0 {
		return nil
	}
	return netio.WriteExact(w, payload2)
}
