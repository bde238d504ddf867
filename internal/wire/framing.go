package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Framing selects how messages are delimited on the socket.
type Framing int

const (
	// FramingLengthPrefixed prefixes every message with a 4-byte big-endian length.
	FramingLengthPrefixed Framing = iota
	// FramingDelimited is the legacy mode: messages are bare runs of
	// NUL-terminated fields and boundaries come from decoding.
	FramingDelimited
)

const (
	// MaxFrameSize bounds a single length-prefixed frame.
	MaxFrameSize = 16 << 20

	apiPrefix        = "API\x00"
	lengthPrefixSize = 4
)

// ParseFraming parses the configuration name of a framing mode.
func ParseFraming(name string) (Framing, error) {
	switch strings.ToLower(name) {
	case "", "length_prefixed", "length-prefixed":
		return FramingLengthPrefixed, nil
	case "delimited":
		return FramingDelimited, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown framing %q", name)
	}
}

func (f Framing) String() string {
	if f == FramingDelimited {
		return "delimited"
	}

	return "length-prefixed"
}

// EncodeFields joins fields, terminating each with NUL.
func EncodeFields(fields []string) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		buf.WriteString(f)
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

// EncodeFrame renders fields as one length-prefixed frame.
func EncodeFrame(fields []string) []byte {
	return prefixLength(EncodeFields(fields))
}

func prefixLength(payload []byte) []byte {
	frame := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[lengthPrefixSize:], payload)

	return frame
}

// SplitFields splits a frame payload into its NUL-terminated fields.
func SplitFields(payload []byte) ([]string, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	if payload[len(payload)-1] != 0 {
		return nil, errors.New(errors.ErrCodeProtocolError, "frame payload is not NUL terminated")
	}

	return strings.Split(string(payload[:len(payload)-1]), "\x00"), nil
}

// VersionRange renders the handshake version announcement, e.g. "v100..176".
func VersionRange(minVersion, maxVersion int) string {
	if minVersion == maxVersion {
		return fmt.Sprintf("v%d", minVersion)
	}

	return fmt.Sprintf("v%d..%d", minVersion, maxVersion)
}

// ParseVersionRange parses a handshake version announcement.
func ParseVersionRange(s string) (int, int, error) {
	if !strings.HasPrefix(s, "v") {
		return 0, 0, errors.Newf(errors.ErrCodeProtocolError, "invalid version range %q", s)
	}

	lo, hi, found := strings.Cut(s[1:], "..")
	if !found {
		hi = lo
	}

	minVersion, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, errors.Wrapf(errors.ErrCodeProtocolError, err, "invalid version range %q", s)
	}

	maxVersion, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, errors.Wrapf(errors.ErrCodeProtocolError, err, "invalid version range %q", s)
	}

	if minVersion > maxVersion {
		return 0, 0, errors.Newf(errors.ErrCodeProtocolError, "invalid version range %q", s)
	}

	return minVersion, maxVersion, nil
}

// Writer writes messages in one framing mode. It is not safe for concurrent
// use; callers serialize writes.
type Writer struct {
	w       io.Writer
	framing Framing
}

func NewWriter(w io.Writer, framing Framing) *Writer {
	return &Writer{w: w, framing: framing}
}

// WriteHandshake sends the API prefix and the supported version range.
func (w *Writer) WriteHandshake(minVersion, maxVersion int) error {
	announce := []byte(VersionRange(minVersion, maxVersion))

	var buf bytes.Buffer
	buf.WriteString(apiPrefix)

	if w.framing == FramingLengthPrefixed {
		buf.Write(prefixLength(announce))
	} else {
		buf.Write(announce)
		buf.WriteByte(0)
	}

	_, err := w.w.Write(buf.Bytes())

	return err
}

// WriteFields writes one message given as raw fields.
func (w *Writer) WriteFields(fields []string) error {
	var data []byte
	if w.framing == FramingLengthPrefixed {
		data = EncodeFrame(fields)
	} else {
		data = EncodeFields(fields)
	}

	_, err := w.w.Write(data)

	return err
}

// WriteMessage encodes and writes one typed message.
func (w *Writer) WriteMessage(m Message, serverVersion int) error {
	return w.WriteFields(Encode(m, serverVersion))
}

// Reader reads messages in one framing mode. Partial reads are buffered until
// a full frame, or in delimited mode a full message, is available.
type Reader struct {
	br      *bufio.Reader
	framing Framing
	pending []string
}

func NewReader(r io.Reader, framing Framing) *Reader {
	return &Reader{br: bufio.NewReader(r), framing: framing}
}

// ReadHandshake reads the client's API prefix and version range.
func (r *Reader) ReadHandshake() (int, int, error) {
	prefix := make([]byte, len(apiPrefix))
	if _, err := io.ReadFull(r.br, prefix); err != nil {
		return 0, 0, err
	}

	if string(prefix) != apiPrefix {
		return 0, 0, errors.Newf(errors.ErrCodeProtocolError, "unexpected handshake prefix %q", prefix)
	}

	var announce string
	if r.framing == FramingLengthPrefixed {
		payload, err := r.readFrame()
		if err != nil {
			return 0, 0, err
		}

		announce = string(payload)
	} else {
		field, err := r.readField()
		if err != nil {
			return 0, 0, err
		}

		announce = field
	}

	return ParseVersionRange(announce)
}

// ReadServerHello reads the server version and connection time that answer
// the handshake.
func (r *Reader) ReadServerHello() (int, string, error) {
	fields, err := r.readHelloFields()
	if err != nil {
		return 0, "", err
	}

	if len(fields) < 2 {
		return 0, "", errors.New(errors.ErrCodeProtocolError, "short server hello")
	}

	version, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", errors.Wrapf(errors.ErrCodeProtocolError, err, "invalid server version %q", fields[0])
	}

	return version, fields[1], nil
}

func (r *Reader) readHelloFields() ([]string, error) {
	if r.framing == FramingLengthPrefixed {
		return r.ReadFields()
	}

	fields := make([]string, 0, 2)
	for len(fields) < 2 {
		field, err := r.readField()
		if err != nil {
			return nil, err
		}

		fields = append(fields, field)
	}

	return fields, nil
}

// ReadFields reads one length-prefixed frame and splits it into fields.
func (r *Reader) ReadFields() ([]string, error) {
	payload, err := r.readFrame()
	if err != nil {
		return nil, err
	}

	return SplitFields(payload)
}

// ReadMessage reads the next gateway-to-client message.
func (r *Reader) ReadMessage(serverVersion int) (Message, error) {
	return r.read(inbound, serverVersion)
}

// ReadRequest reads the next client-to-gateway message.
func (r *Reader) ReadRequest(serverVersion int) (Message, error) {
	return r.read(outbound, serverVersion)
}

func (r *Reader) read(table map[int]factory, serverVersion int) (Message, error) {
	if r.framing == FramingLengthPrefixed {
		return r.readFramed(table, serverVersion)
	}

	return r.readDelimited(table, serverVersion)
}

func (r *Reader) readFramed(table map[int]factory, serverVersion int) (Message, error) {
	fields, err := r.ReadFields()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, errors.New(errors.ErrCodeProtocolError, "empty frame")
	}

	msg, _, err := decode(table, fields, serverVersion)

	switch {
	case err == nil:
		return msg, nil
	case errors.Is(err, ErrUnknownMessage):
		code, _ := strconv.Atoi(fields[0])

		return &Unknown{MessageCode: code, Fields: fields[1:]}, nil
	case errors.Is(err, ErrIncomplete):
		return nil, errors.Wrapf(errors.ErrCodeProtocolError, err, "truncated frame for message %s", fields[0])
	default:
		return nil, err
	}
}

func (r *Reader) readDelimited(table map[int]factory, serverVersion int) (Message, error) {
	for {
		if len(r.pending) > 0 {
			msg, consumed, err := decode(table, r.pending, serverVersion)
			if err == nil {
				r.pending = r.pending[consumed:]

				return msg, nil
			}

			if !errors.Is(err, ErrIncomplete) {
				return nil, err
			}
		}

		field, err := r.readField()
		if err != nil {
			return nil, err
		}

		r.pending = append(r.pending, field)
	}
}

func (r *Reader) readFrame() ([]byte, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r.br, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, errors.Newf(errors.ErrCodeProtocolError, "frame of %d bytes exceeds limit", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return payload, nil
}

func (r *Reader) readField() (string, error) {
	field, err := r.br.ReadString(0)
	if err != nil {
		if err == io.EOF && field != "" {
			err = io.ErrUnexpectedEOF
		}

		return "", err
	}

	return field[:len(field)-1], nil
}
