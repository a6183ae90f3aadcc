package faceserver

import (
	"errors"
	"image"
	"net"

	"github.com/danmuck/faceguard/internal/netio"
	"github.com/danmuck/faceguard/internal/vision"
	"github.com/danmuck/faceguard/internal/wire"
	"gocv.io/x/gocv"
)

// handleConn runs the persistent request loop for one connection: it keeps
// servicing frames until a request fails or the peer goes away, then always
// records completion and releases the admission permit exactly once.
func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.stats.ClientCompleted()
		s.release()
	}()
	for s.serveOneRequest(conn) {
	}
}

// serveOneRequest runs one AWAIT_FRAME..SEND cycle and reports whether the
// connection should be offered another request.
func (s *Server) serveOneRequest(conn net.Conn) bool {
	if err := wire.ReadMagic(conn); err != nil {
		if errors.Is(err, wire.ErrBadMagic) {
			netio.WriteExact(conn, s.cfg.PrefixResponse)
			s.stats.MalformedRequest()
			return false
		}
		wire.WriteError(conn, "invalid message")
		return false
	}

	op, err := wire.ReadOp(conn)
	if err != nil {
		wire.WriteError(conn, "invalid message")
		return false
	}
	if op != wire.OpDetect && op != wire.OpReplace {
		wire.WriteError(conn, "invalid operation type")
		return false
	}

	primary, ok := s.readImage(conn)
	if !ok {
		return false
	}

	frame, err := s.detector.DecodeColor(primary)
	if err != nil {
		wire.WriteError(conn, "invalid image")
		return false
	}
	defer frame.Close()

	grey := vision.Greyscale(frame)
	defer grey.Close()

	faces := s.detector.FindFaces(grey)
	if len(faces) == 0 {
		wire.WriteError(conn, "no faces detected in image")
		return false
	}

	switch op {
	case wire.OpDetect:
		s.detector.Annotate(frame, grey, faces)
		return s.encodeAndSend(conn, frame, s.stats.FaceDetectOK)
	case wire.OpReplace:
		return s.serveReplace(conn, frame, faces)
	default:
		return false
	}
}

func (s *Server) serveReplace(conn net.Conn, frame gocv.Mat, faces []image.Rectangle) bool {
	raw, ok := s.readImage(conn)
	if !ok {
		return false
	}
	replacement, err := s.detector.DecodeUnchanged(raw)
	if err != nil {
		wire.WriteError(conn, "invalid image")
		return false
	}
	defer replacement.Close()

	if err := vision.Composite(frame, faces, replacement); err != nil {
		wire.WriteError(conn, "invalid image")
		return false
	}
	return s.encodeAndSend(conn, frame, s.stats.FaceReplaceOK)
}

// readImage reads a length-prefixed payload and, on any error, sends the
// matching response itself before reporting failure to the caller.
func (s *Server) readImage(conn net.Conn) ([]byte, bool) {
	size, err := wire.ReadLen(conn)
	if err != nil {
		wire.WriteError(conn, "invalid message")
		return nil, false
	}
	if size == 0 {
		wire.WriteError(conn, "image is 0 bytes")
		return nil, false
	}
	if size > s.cfg.MaxImageBytes {
		wire.WriteError(conn, "image too large")
		return nil, false
	}
	payload, err := wire.ReadPayload(conn, size)
	if err != nil {
		wire.WriteError(conn, "invalid message")
		return nil, false
	}
	return payload, true
}

func (s *Server) encodeAndSend(conn net.Conn, frame gocv.Mat, onSuccess func()) bool {
	out, err := s.detector.EncodeJPEG(frame)
	if err != nil {
		wire.WriteError(conn, "invalid image")
		return false
	}
	if err := wire.WriteResponse(conn, wire.OpImage, out); err != nil {
		return false
	}
	onSuccess()
	return true
}
