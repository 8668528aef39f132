// Package messenger implements the length-prefixed publish/subscribe protocol used to
// exchange planning requests and results between robot processes.
//
// Every frame on the wire is
//
//	u16 name_len | name (UTF-8) | i32 data_len | data
//
// with all integers big-endian. A client identifies itself once after connecting by
// sending a u16 length-prefixed name. Names starting with an underscore are control
// messages understood by the broker.
package messenger

import (
	"encoding/binary"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Control message names.
const (
	HeartbeatName  = "_Heartbeat"
	ListenName     = "_Listen"
	UnlistenName   = "_Unlisten"
	DisconnectName = "_Disconnect"

	// EventName is broadcast by the broker when a client connects, changes what it
	// listens to, or goes away.
	EventName = "Messenger:Event"
)

const (
	// MaxNameLength is the longest name a frame can carry.
	MaxNameLength = math.MaxUint16
	// MaxDataLength is the largest payload a frame can carry.
	MaxDataLength = math.MaxInt32

	nameHeaderSize = 2
	dataHeaderSize = 4
)

var (
	// ErrInvalidName is returned when a frame's name is not valid UTF-8.
	ErrInvalidName = errors.New("message name is not valid UTF-8")
	// ErrInvalidLength is returned when a frame declares a negative payload length.
	ErrInvalidLength = errors.New("message data length is negative")
	// ErrNameTooLong is returned when encoding a name longer than MaxNameLength.
	ErrNameTooLong = errors.New("message name too long")
	// ErrDataTooLong is returned when encoding a payload longer than MaxDataLength.
	ErrDataTooLong = errors.New("message data too long")
)

// Message is a single named frame.
type Message struct {
	Name string
	Data []byte
}

// IsControl reports whether the message is addressed to the broker rather than to
// other clients.
func (m Message) IsControl() bool {
	return strings.HasPrefix(m.Name, "_")
}

// Validate checks that the message fits in a frame.
func (m Message) Validate() error {
	if len(m.Name) > MaxNameLength {
		return errors.Wrapf(ErrNameTooLong, "%d bytes", len(m.Name))
	}
	if !utf8.ValidString(m.Name) {
		return ErrInvalidName
	}
	if int64(len(m.Data)) > MaxDataLength {
		return errors.Wrapf(ErrDataTooLong, "%d bytes", len(m.Data))
	}
	return nil
}

// MarshalBinary encodes the message as one frame.
func (m Message) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, nameHeaderSize+len(m.Name)+dataHeaderSize+len(m.Data))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.Name)))
	buf = append(buf, m.Name...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(m.Data)))
	buf = append(buf, m.Data...)
	return buf, nil
}

// DecodeMessage decodes the first frame in buf. It returns the message and the number
// of bytes consumed. If buf does not yet hold a whole frame, n is 0 and err is nil.
func DecodeMessage(buf []byte) (msg Message, n int, err error) {
	if len(buf) < nameHeaderSize {
		return Message{}, 0, nil
	}
	nameLen := int(binary.BigEndian.Uint16(buf))
	offset := nameHeaderSize
	if len(buf) < offset+nameLen+dataHeaderSize {
		return Message{}, 0, nil
	}
	name := buf[offset : offset+nameLen]
	if !utf8.Valid(name) {
		return Message{}, 0, ErrInvalidName
	}
	offset += nameLen

	dataLen := int32(binary.BigEndian.Uint32(buf[offset:]))
	if dataLen < 0 {
		return Message{}, 0, ErrInvalidLength
	}
	offset += dataHeaderSize
	if len(buf)-offset < int(dataLen) {
		return Message{}, 0, nil
	}
	data := make([]byte, dataLen)
	copy(data, buf[offset:])
	return Message{Name: string(name), Data: data}, offset + int(dataLen), nil
}

// ReadMessage reads exactly one frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	name, err := readString(r)
	if err != nil {
		return Message{}, err
	}

	var header [dataHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, unexpected(err)
	}
	dataLen := int32(binary.BigEndian.Uint32(header[:]))
	if dataLen < 0 {
		return Message{}, ErrInvalidLength
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return Message{}, unexpected(err)
	}
	return Message{Name: name, Data: data}, nil
}

// WriteMessage writes msg to w as a single frame with one Write call.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// WriteIdentity writes the name a client announces when it connects.
func WriteIdentity(w io.Writer, name string) error {
	payload, err := NewMessageBuilder().AddString(name).Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadIdentity reads the name a client announces when it connects.
func ReadIdentity(r io.Reader) (string, error) {
	return readString(r)
}

func readString(r io.Reader) (string, error) {
	var header [nameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		// a clean EOF between frames stays io.EOF
		return "", err
	}
	raw := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", unexpected(err)
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidName
	}
	return string(raw), nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
