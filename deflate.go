package wsclient

import (
	"bytes"
	"compress/flate"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// deflateTrailer is the RFC 7692 §7.2.2 sentinel appended to the final
// fragment of a compressed message before decompression, plus an empty
// final stored DEFLATE block so the reader reaches a legitimate end of
// stream instead of io.ErrUnexpectedEOF.
// exactly.
var deflateTrailer = []byte{0x00, 0x00, 0xff, 0xff, 0x01, 0x00, 0x00, 0xff, 0xff}

// decompressorPool reuses flate.Reader instances across messages. Each
// borrowed reader is Reset with a nil dictionary before use, matching the
// per-message (no context-takeover) decompression model.
var decompressorPool sync.Pool

// direction serializes a FIFO queue of pending buffers behind a single
// "lock" (the processing flag), per spec §4.4 / §9: the underlying
// compressor owns a stateful window that cannot tolerate concurrent
// flushes, so at most one buffer is ever being processed at a time and
// later arrivals simply wait their turn in queue.
type direction struct {
	mu         sync.Mutex
	queue      []queueItem
	processing bool
	process    func(queueItem)
}

type queueItem struct {
	buf  []byte
	cont bool // true if this is not the terminating fragment of a message
	code opCode
}

func (d *direction) enqueue(item queueItem) {
	d.mu.Lock()
	d.queue = append(d.queue, item)
	if d.processing {
		d.mu.Unlock()
		return
	}
	d.processing = true
	d.mu.Unlock()
	d.drain()
}

// drain processes queued items one at a time until the queue is empty,
// releasing the processing lock only once nothing is left to do.
func (d *direction) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.processing = false
			d.mu.Unlock()
			return
		}
		item := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		d.process(item)
	}
}

// inflatePipeline accumulates raw (still-compressed) fragment bytes for
// the message currently in flight and, once the terminating fragment
// arrives, decompresses the whole thing in one shot via the shared
// decompressor pool.
type inflatePipeline struct {
	dir     direction
	pending []byte
	conn    *Conn
	gen     *generation
}

func newInflatePipeline(c *Conn, gen *generation) *inflatePipeline {
	p := &inflatePipeline{conn: c, gen: gen}
	p.dir.process = p.process
	return p
}

func (p *inflatePipeline) enqueue(buf []byte, cont bool) {
	p.dir.enqueue(queueItem{buf: buf, cont: cont})
}

func (p *inflatePipeline) process(item queueItem) {
	p.pending = append(p.pending, item.buf...)
	if item.cont {
		return
	}
	full := append(p.pending, deflateTrailer...)
	p.pending = nil

	zr, _ := decompressorPool.Get().(io.ReadCloser)
	br := bytes.NewReader(full)
	if zr == nil {
		zr = flate.NewReader(br)
	} else {
		zr.(flate.Resetter).Reset(br, nil)
	}
	out, err := io.ReadAll(zr)
	decompressorPool.Put(zr)

	if err != nil {
		p.conn.reportCompressionError(errors.Wrap(err, "inflate"))
		return
	}
	if p.conn.cfg.MaxLength > 0 && len(p.gen.body)+len(out) > p.conn.cfg.MaxLength {
		p.conn.closeWithCode(p.gen, 1009, "Frame is too large")
		return
	}
	p.gen.body = append(p.gen.body, out...)
	body := p.gen.body
	p.gen.body = nil
	p.conn.deliverMessage(p.gen.acc.msgOpcode, body)
}

// deflatePipeline compresses one outbound payload per queue item and
// writes the resulting frame directly to the socket once the flush
// (Close, in the stdlib flate sense) completes.
type deflatePipeline struct {
	dir    direction
	writer *flate.Writer
	conn   *Conn
	gen    *generation
}

func newDeflatePipeline(c *Conn, gen *generation) *deflatePipeline {
	p := &deflatePipeline{conn: c, gen: gen}
	p.dir.process = p.process
	return p
}

func (p *deflatePipeline) enqueue(payload []byte, code opCode) {
	p.dir.enqueue(queueItem{buf: payload, code: code})
}

func (p *deflatePipeline) process(item queueItem) {
	buf := &bytes.Buffer{}
	if p.writer == nil {
		p.writer, _ = flate.NewWriter(buf, flate.BestSpeed)
	} else {
		p.writer.Reset(buf)
	}
	if _, err := p.writer.Write(item.buf); err != nil {
		p.conn.reportCompressionError(errors.Wrap(err, "deflate write"))
		return
	}
	if err := p.writer.Close(); err != nil {
		p.conn.reportCompressionError(errors.Wrap(err, "deflate close"))
		return
	}
	out := buf.Bytes()
	if len(out) >= 4 {
		out = out[:len(out)-4]
	}
	p.conn.writeFrame(p.gen, item.code, out, true)
}
