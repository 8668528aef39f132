package messenger

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrShortPayload is returned when a payload ends before the value being read.
var ErrShortPayload = errors.New("payload too short")

// MessageBuilder appends big-endian primitives to a payload. The first encoding error
// sticks and is returned by Bytes and Build.
type MessageBuilder struct {
	buf []byte
	err error
}

// NewMessageBuilder returns an empty builder.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

// AddBoolean appends one byte, 1 for true.
func (b *MessageBuilder) AddBoolean(v bool) *MessageBuilder {
	if v {
		return b.AddByte(1)
	}
	return b.AddByte(0)
}

// AddByte appends a single byte.
func (b *MessageBuilder) AddByte(v byte) *MessageBuilder {
	b.buf = append(b.buf, v)
	return b
}

// AddShort appends a 16-bit integer.
func (b *MessageBuilder) AddShort(v int16) *MessageBuilder {
	b.buf = binary.BigEndian.AppendUint16(b.buf, uint16(v))
	return b
}

// AddInt appends a 32-bit integer.
func (b *MessageBuilder) AddInt(v int32) *MessageBuilder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(v))
	return b
}

// AddLong appends a 64-bit integer.
func (b *MessageBuilder) AddLong(v int64) *MessageBuilder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, uint64(v))
	return b
}

// AddFloat appends an IEEE 754 single.
func (b *MessageBuilder) AddFloat(v float32) *MessageBuilder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, math.Float32bits(v))
	return b
}

// AddDouble appends an IEEE 754 double.
func (b *MessageBuilder) AddDouble(v float64) *MessageBuilder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, math.Float64bits(v))
	return b
}

// AddString appends a u16 length-prefixed UTF-8 string.
func (b *MessageBuilder) AddString(v string) *MessageBuilder {
	if len(v) > MaxNameLength {
		if b.err == nil {
			b.err = errors.Wrapf(ErrNameTooLong, "string of %d bytes", len(v))
		}
		return b
	}
	b.buf = binary.BigEndian.AppendUint16(b.buf, uint16(len(v)))
	b.buf = append(b.buf, v...)
	return b
}

// AddRaw appends bytes without a length prefix.
func (b *MessageBuilder) AddRaw(v []byte) *MessageBuilder {
	b.buf = append(b.buf, v...)
	return b
}

// Len returns the payload size so far.
func (b *MessageBuilder) Len() int {
	return len(b.buf)
}

// Bytes returns the payload.
func (b *MessageBuilder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.buf, nil
}

// Build returns a message with the given name carrying the payload.
func (b *MessageBuilder) Build(name string) (Message, error) {
	data, err := b.Bytes()
	if err != nil {
		return Message{}, err
	}
	msg := Message{Name: name, Data: data}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// MessageReader reads big-endian primitives from a payload in order.
type MessageReader struct {
	data []byte
	pos  int
}

// NewMessageReader returns a reader positioned at the start of data.
func NewMessageReader(data []byte) *MessageReader {
	return &MessageReader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *MessageReader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *MessageReader) next(n int, what string) ([]byte, error) {
	if r.Remaining() < n {
		return nil, errors.Wrapf(ErrShortPayload, "reading %s at offset %d: need %d bytes, have %d",
			what, r.pos, n, r.Remaining())
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// ReadBoolean reads one byte and reports whether it is non-zero.
func (r *MessageReader) ReadBoolean() (bool, error) {
	v, err := r.ReadByte()
	return v != 0, err
}

// ReadByte reads a single byte.
func (r *MessageReader) ReadByte() (byte, error) {
	raw, err := r.next(1, "byte")
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// ReadShort reads a 16-bit integer.
func (r *MessageReader) ReadShort() (int16, error) {
	raw, err := r.next(2, "short")
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(raw)), nil
}

// ReadInt reads a 32-bit integer.
func (r *MessageReader) ReadInt() (int32, error) {
	raw, err := r.next(4, "int")
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw)), nil
}

// ReadLong reads a 64-bit integer.
func (r *MessageReader) ReadLong() (int64, error) {
	raw, err := r.next(8, "long")
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// ReadFloat reads an IEEE 754 single.
func (r *MessageReader) ReadFloat() (float32, error) {
	raw, err := r.next(4, "float")
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(raw)), nil
}

// ReadDouble reads an IEEE 754 double.
func (r *MessageReader) ReadDouble() (float64, error) {
	raw, err := r.next(8, "double")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
}

// ReadString reads a u16 length-prefixed UTF-8 string.
func (r *MessageReader) ReadString() (string, error) {
	raw, err := r.next(2, "string length")
	if err != nil {
		return "", err
	}
	str, err := r.next(int(binary.BigEndian.Uint16(raw)), "string")
	if err != nil {
		return "", err
	}
	return string(str), nil
}

// ReadRaw reads n bytes.
func (r *MessageReader) ReadRaw(n int) ([]byte, error) {
	return r.next(n, "raw bytes")
}

// ReadAllData returns every unread byte.
func (r *MessageReader) ReadAllData() []byte {
	out := r.data[r.pos:]
	r.pos = len(r.data)
	return out
}
