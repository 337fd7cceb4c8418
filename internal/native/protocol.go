package native

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Native protocol commands (subset used by this client)
const (
	opError   = 0
	opTimeout = 1
	opReply   = 2

	opExit          = 7
	opAuth          = 8
	opSetClientName = 9

	opPlaySample   = 18
	opRemoveSample = 19

	opSetDefaultSink   = 44
	opSetDefaultSource = 45

	opUpdateClientProplist = 82
	opRemoveClientProplist = 85
)

// protocolVersion is the version this client speaks during AUTH
const protocolVersion = 32

// versionMask strips the feature flag bits from a negotiated version
const versionMask = 0x0000FFFF

// Frame descriptor layout: five big-endian uint32 words
const (
	descriptorSize = 20

	// channelControl marks a control frame as opposed to stream payload
	channelControl = 0xFFFFFFFF

	// maxFrameSize bounds payloads accepted from the server
	maxFrameSize = 1024 * 1024
)

// Tagstruct type markers
const (
	tagU32        = 'L'
	tagString     = 't'
	tagStringNull = 'N'
	tagBoolTrue   = '1'
	tagBoolFalse  = '0'
	tagArbitrary  = 'x'
	tagVolume     = 'V'
	tagProplist   = 'P'
)

// frame is one complete control message on the wire
type frame struct {
	Channel uint32
	Payload []byte
}

// writeFrame writes a descriptor followed by the payload
func writeFrame(w io.Writer, f *frame) error {
	desc := make([]byte, descriptorSize)
	binary.BigEndian.PutUint32(desc[0:4], uint32(len(f.Payload)))
	binary.BigEndian.PutUint32(desc[4:8], f.Channel)
	// offset high/low and flags stay zero for control frames
	if _, err := w.Write(desc); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	if _, err := w.Write(f.Payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// readFrame reads one descriptor plus payload from the reader
func readFrame(r *bufio.Reader) (*frame, error) {
	desc := make([]byte, descriptorSize)
	if _, err := io.ReadFull(r, desc); err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	length := binary.BigEndian.Uint32(desc[0:4])
	channel := binary.BigEndian.Uint32(desc[4:8])
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return &frame{Channel: channel, Payload: payload}, nil
}

// tagWriter builds a tagstruct payload
type tagWriter struct {
	buf bytes.Buffer
}

func newTagWriter() *tagWriter {
	return &tagWriter{}
}

func (w *tagWriter) putU32(v uint32) {
	w.buf.WriteByte(tagU32)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// putString writes a NUL-terminated string, or the null marker for ""
func (w *tagWriter) putString(s string) {
	if s == "" {
		w.buf.WriteByte(tagStringNull)
		return
	}
	w.buf.WriteByte(tagString)
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

func (w *tagWriter) putBool(v bool) {
	if v {
		w.buf.WriteByte(tagBoolTrue)
	} else {
		w.buf.WriteByte(tagBoolFalse)
	}
}

func (w *tagWriter) putArbitrary(data []byte) {
	w.buf.WriteByte(tagArbitrary)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(len(data)))
	w.buf.Write(b[:])
	w.buf.Write(data)
}

func (w *tagWriter) putVolume(v Volume) {
	w.buf.WriteByte(tagVolume)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// putProplist writes the properties in sorted key order followed by the
// null-string terminator. Values carry a trailing NUL per the protocol.
func (w *tagWriter) putProplist(p Proplist) {
	w.buf.WriteByte(tagProplist)
	for _, k := range p.Keys() {
		w.putString(k)
		v := p[k]
		w.putU32(uint32(len(v) + 1))
		w.putArbitrary(append([]byte(v), 0))
	}
	w.buf.WriteByte(tagStringNull)
}

func (w *tagWriter) bytes() []byte {
	return w.buf.Bytes()
}

// tagReader parses a tagstruct payload
type tagReader struct {
	data []byte
	pos  int
}

func newTagReader(data []byte) *tagReader {
	return &tagReader{data: data}
}

func (r *tagReader) tag() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	t := r.data[r.pos]
	r.pos++
	return t, nil
}

func (r *tagReader) getU32() (uint32, error) {
	t, err := r.tag()
	if err != nil {
		return 0, err
	}
	if t != tagU32 {
		return 0, fmt.Errorf("expected u32 tag, got %q", t)
	}
	if r.pos+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *tagReader) getString() (string, error) {
	t, err := r.tag()
	if err != nil {
		return "", err
	}
	switch t {
	case tagStringNull:
		return "", nil
	case tagString:
		end := bytes.IndexByte(r.data[r.pos:], 0)
		if end < 0 {
			return "", io.ErrUnexpectedEOF
		}
		s := string(r.data[r.pos : r.pos+end])
		r.pos += end + 1
		return s, nil
	}
	return "", fmt.Errorf("expected string tag, got %q", t)
}

// request builds a complete command payload: command, sequence tag, args
func request(command, tag uint32, args func(*tagWriter)) *frame {
	w := newTagWriter()
	w.putU32(command)
	w.putU32(tag)
	if args != nil {
		args(w)
	}
	return &frame{Channel: channelControl, Payload: w.bytes()}
}
