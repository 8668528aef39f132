package messenger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestMessageRoundTrip(t *testing.T) {
	longName := strings.Repeat("n", MaxNameLength)
	bigData := make([]byte, 1<<20)
	for i := range bigData {
		bigData[i] = byte(i * 7)
	}

	for _, msg := range []Message{
		{Name: "Pathfinder:Arm:Calc", Data: []byte{1, 2, 3}},
		{Name: "", Data: []byte{}},
		{Name: "ünïcødé", Data: []byte{0}},
		{Name: longName, Data: bigData},
	} {
		frame, err := msg.MarshalBinary()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, frame, test.ShouldHaveLength, 6+len(msg.Name)+len(msg.Data))

		decoded, n, err := DecodeMessage(frame)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, n, test.ShouldEqual, len(frame))
		test.That(t, decoded.Name, test.ShouldEqual, msg.Name)
		test.That(t, bytes.Equal(decoded.Data, msg.Data), test.ShouldBeTrue)

		var buf bytes.Buffer
		test.That(t, WriteMessage(&buf, msg), test.ShouldBeNil)
		read, err := ReadMessage(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Name, test.ShouldEqual, msg.Name)
		test.That(t, bytes.Equal(read.Data, msg.Data), test.ShouldBeTrue)
		test.That(t, buf.Len(), test.ShouldEqual, 0)
	}
}

func TestMessageWireFormat(t *testing.T) {
	frame, err := Message{Name: "ab", Data: []byte{9, 8}}.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame, test.ShouldResemble, []byte{0, 2, 'a', 'b', 0, 0, 0, 2, 9, 8})
}

func TestDecodeIncomplete(t *testing.T) {
	frame, err := Message{Name: "Partial", Data: []byte("some data")}.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)

	for i := 0; i < len(frame); i++ {
		msg, n, err := DecodeMessage(frame[:i])
		test.That(t, err, test.ShouldBeNil)
		test.That(t, n, test.ShouldEqual, 0)
		test.That(t, msg, test.ShouldResemble, Message{})
	}
}

func TestDecodeConsecutive(t *testing.T) {
	first, err := Message{Name: "first", Data: []byte{1}}.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	second, err := Message{Name: "second"}.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	stream := append(append([]byte{}, first...), second...)

	msg, n, err := DecodeMessage(stream)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Name, test.ShouldEqual, "first")
	test.That(t, n, test.ShouldEqual, len(first))

	msg, n, err = DecodeMessage(stream[n:])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Name, test.ShouldEqual, "second")
	test.That(t, msg.Data, test.ShouldBeEmpty)
	test.That(t, n, test.ShouldEqual, len(second))
}

func TestDecodeErrors(t *testing.T) {
	badName := []byte{0, 2, 0xff, 0xfe, 0, 0, 0, 0}
	_, n, err := DecodeMessage(badName)
	test.That(t, err, test.ShouldBeError, ErrInvalidName)
	test.That(t, n, test.ShouldEqual, 0)
	_, err = ReadMessage(bytes.NewReader(badName))
	test.That(t, err, test.ShouldBeError, ErrInvalidName)

	negative := []byte{0, 1, 'x'}
	negative = binary.BigEndian.AppendUint32(negative, 0x80000000)
	_, _, err = DecodeMessage(negative)
	test.That(t, err, test.ShouldBeError, ErrInvalidLength)
	_, err = ReadMessage(bytes.NewReader(negative))
	test.That(t, err, test.ShouldBeError, ErrInvalidLength)
}

func TestReadMessageTruncated(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil))
	test.That(t, err, test.ShouldEqual, io.EOF)

	frame, err := Message{Name: "cut", Data: []byte{1, 2, 3, 4}}.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	for _, size := range []int{1, 3, 6, len(frame) - 1} {
		_, err := ReadMessage(bytes.NewReader(frame[:size]))
		test.That(t, err, test.ShouldEqual, io.ErrUnexpectedEOF)
	}
}

func TestMarshalOversize(t *testing.T) {
	_, err := Message{Name: strings.Repeat("n", MaxNameLength+1)}.MarshalBinary()
	test.That(t, errors.Is(err, ErrNameTooLong), test.ShouldBeTrue)

	_, err = Message{Name: string([]byte{0xc3})}.MarshalBinary()
	test.That(t, err, test.ShouldBeError, ErrInvalidName)

	var buf bytes.Buffer
	err = WriteMessage(&buf, Message{Name: strings.Repeat("n", MaxNameLength+1)})
	test.That(t, errors.Is(err, ErrNameTooLong), test.ShouldBeTrue)
	test.That(t, buf.Len(), test.ShouldEqual, 0)
}

func TestIdentity(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, WriteIdentity(&buf, "Pathfinder"), test.ShouldBeNil)
	test.That(t, buf.Bytes()[:2], test.ShouldResemble, []byte{0, 10})

	name, err := ReadIdentity(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, name, test.ShouldEqual, "Pathfinder")
}

func TestIsControl(t *testing.T) {
	test.That(t, Message{Name: HeartbeatName}.IsControl(), test.ShouldBeTrue)
	test.That(t, Message{Name: DisconnectName}.IsControl(), test.ShouldBeTrue)
	test.That(t, Message{Name: "Pathfinder:Arm:Calc"}.IsControl(), test.ShouldBeFalse)
}
