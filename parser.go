package wsclient

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// frameHeader is the decoded header of one wire frame, along with the
// number of header bytes it occupied (so the caller can locate the
// payload without re-parsing).
type frameHeader struct {
	fin        bool
	compressed bool
	opcode     opCode
	masked     bool
	mask       [4]byte
	length     int
	headerLen  int
}

// parseFrameHeader attempts to decode a frame header from the front of
// buf. ok is false when buf does not yet contain a complete header (the
// caller should wait for more bytes); err is non-nil only for frames that
// can never be valid (RFC violations detected at the header level).
//
// This is a single pure function operating on a fully buffered slice,
// since the accumulator works against bytes already copied into the
// receive buffer rather than reading incrementally off the live socket.
func parseFrameHeader(buf []byte) (frameHeader, bool, error) {
	if len(buf) < 2 {
		return frameHeader{}, false, nil
	}
	b0, b1 := buf[0], buf[1]

	h := frameHeader{
		fin:        b0&finalBit != 0,
		compressed: b0&rsv1Bit != 0,
		opcode:     opCode(b0 & 0x0F),
		masked:     b1&maskBit != 0,
	}

	length7 := int(b1 & 0x7F)
	pos := 2

	switch length7 {
	case 126:
		if len(buf) < pos+2 {
			return frameHeader{}, false, nil
		}
		h.length = int(binary.BigEndian.Uint16(buf[pos : pos+2]))
		pos += 2
	case 127:
		if len(buf) < pos+8 {
			return frameHeader{}, false, nil
		}
		hi := binary.BigEndian.Uint32(buf[pos : pos+4])
		lo := binary.BigEndian.Uint32(buf[pos+4 : pos+8])
		if hi != 0 {
			return frameHeader{}, false, errors.Wrap(ErrProtocol, "frame length exceeds 4GiB")
		}
		h.length = int(lo)
		pos += 8
	default:
		h.length = length7
	}

	if h.opcode.isControl() {
		if h.length > maxControlPayload {
			return frameHeader{}, false, errors.Wrapf(ErrProtocol, "control frame payload %d exceeds %d", h.length, maxControlPayload)
		}
		if !h.fin {
			return frameHeader{}, false, errors.Wrap(ErrProtocol, "fragmented control frame")
		}
	}

	if h.masked {
		if len(buf) < pos+4 {
			return frameHeader{}, false, nil
		}
		copy(h.mask[:], buf[pos:pos+4])
		pos += 4
	}

	h.headerLen = pos
	return h, true, nil
}

// accumulator is the per-generation receive state described in spec §3:
// the unconsumed byte buffer and bookkeeping for the message currently
// being assembled. The assembled body itself is kept in generation.body.
type accumulator struct {
	buf []byte

	msgOpcode  opCode // opcode of the in-progress message (continuation target)
	msgStarted bool   // true while a fragmented message is being assembled
	compressed bool   // true if the in-progress message is permessage-deflate
}

// feed appends newly-read bytes to gen's accumulator and parses as many
// complete frames as are available, dispatching each to c. It returns on
// the first error (a protocol violation or an oversized frame, both of
// which the caller turns into a close) or once the remaining buffer holds
// only a partial frame. gen is threaded explicitly, rather than read off
// c, so a concurrent reconnect swapping c.gen can never hand a read loop
// goroutine a different generation's state mid-parse.
func (c *Conn) feed(gen *generation, data []byte) error {
	acc := &gen.acc
	acc.buf = append(acc.buf, data...)

	for {
		header, ok, err := parseFrameHeader(acc.buf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		total := header.headerLen + header.length
		if c.cfg.MaxLength > 0 && total > c.cfg.MaxLength {
			return errors.Wrapf(ErrFrameTooLarge, "frame of %d bytes exceeds configured max %d", total, c.cfg.MaxLength)
		}
		if len(acc.buf) < total {
			return nil
		}

		payload := make([]byte, header.length)
		copy(payload, acc.buf[header.headerLen:total])
		if header.masked {
			maskPayload(payload, header.mask)
		}

		if err := c.dispatchFrame(gen, header, payload); err != nil {
			return err
		}

		acc.buf = acc.buf[total:]
	}
}

// dispatchFrame routes one fully-received frame by opcode, per spec §4.3.
func (c *Conn) dispatchFrame(gen *generation, h frameHeader, payload []byte) error {
	c.cfg.Logger.TraceFrame("recv", h)
	acc := &gen.acc

	switch h.opcode {
	case opPing:
		c.liveness.Store(true)
		c.writeControl(gen, opPong, pongPayload)
		return nil

	case opPong:
		c.liveness.Store(true)
		return nil

	case opClose:
		code := 1000
		reason := ""
		if len(payload) >= 2 {
			code = int(binary.BigEndian.Uint16(payload[:2]))
			reason = string(payload[2:])
			if c.cfg.EncodeDecode {
				if decoded, err := uriDecode(reason); err == nil {
					reason = decoded
				}
			}
		}
		c.beginPeerClose(gen, code, reason)
		return nil

	case opText, opBinary:
		if acc.msgStarted {
			return errors.Wrap(ErrProtocol, "new message started before previous final frame")
		}
		acc.msgOpcode = h.opcode
		acc.compressed = h.compressed
		if !h.fin {
			acc.msgStarted = true
		}
		return c.consumeDataFragment(gen, h.fin, acc.compressed, payload)

	case opContinuation:
		if !acc.msgStarted {
			return errors.Wrap(ErrProtocol, "continuation frame without a started message")
		}
		if h.fin {
			acc.msgStarted = false
		}
		return c.consumeDataFragment(gen, h.fin, acc.compressed, payload)

	default:
		return errors.Wrapf(ErrProtocol, "unknown opcode %d", h.opcode)
	}
}

// consumeDataFragment routes one data-frame fragment's payload either into
// the inflate pipeline (compressed message) or directly onto the message
// body accumulator (uncompressed), per spec §4.3 step 7 and §4.4.
func (c *Conn) consumeDataFragment(gen *generation, final, compressed bool, payload []byte) error {
	if compressed {
		gen.inflate.enqueue(payload, !final)
		return nil
	}
	gen.body = append(gen.body, payload...)
	if final {
		body := gen.body
		gen.body = nil
		opcode := gen.acc.msgOpcode
		c.deliverMessage(opcode, body)
	}
	return nil
}
