package wsclient

import (
	"bytes"
	"compress/flate"
	"testing"
	"time"
)

// TestDeflatePipelineCompressesAndClearsRSV1Trailer matches spec.md §8
// property 4: the wire frame carries RSV1=1 and the compressed payload
// does not end in the 00 00 ff ff sentinel (that trailer is something
// inflatePipeline adds back before decompressing, never something left on
// the wire).
func TestDeflatePipelineCompressesAndClearsRSV1Trailer(t *testing.T) {
	_, gen, fc := newTestConn(t)

	done := make(chan struct{})
	orig := gen.deflate.dir.process
	gen.deflate.dir.process = func(item queueItem) {
		orig(item)
		close(done)
	}

	gen.deflate.enqueue([]byte("Hello"), opText)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deflate pipeline never processed")
	}

	out := fc.written.Bytes()
	require_True(t, len(out) > 2)
	require_True(t, out[0]&rsv1Bit != 0)

	payload := out[2:]
	require_False(t, bytes.HasSuffix(payload, []byte{0x00, 0x00, 0xff, 0xff}))
}

// TestInflatePipelineRoundTrip feeds a compressed "Hello" message through
// the parser and the inflate pipeline end to end, matching spec.md §8 seed
// scenario 6.
func TestInflatePipelineRoundTrip(t *testing.T) {
	c, gen, _ := newTestConn(t)
	var got any
	c.OnMessage(func(payload any) { got = payload })

	buf := &bytes.Buffer{}
	fw, _ := flate.NewWriter(buf, flate.BestSpeed)
	_, err := fw.Write([]byte("Hello"))
	require_NoError(t, err)
	require_NoError(t, fw.Close())
	compressed := buf.Bytes()
	if len(compressed) >= 4 {
		compressed = compressed[:len(compressed)-4]
	}

	frame := encodeFrame(opText, compressed, true, false)
	require_NoError(t, c.feed(gen, frame))

	require_Equal(t, got.(string), "Hello")
}
