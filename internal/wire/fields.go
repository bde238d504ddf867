package wire

import (
	"math"
	"strconv"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

const maxRepeated = 100_000

// unsetDouble is how the gateway marks a price field that carries no value.
const unsetDouble = "1.7976931348623157E308"

var (
	// ErrIncomplete reports that more fields are needed to finish decoding.
	ErrIncomplete = errors.New(errors.ErrCodeProtocolError, "incomplete message")
	// ErrUnknownMessage reports a message code with no registered decoder.
	ErrUnknownMessage = errors.New(errors.ErrCodeProtocolError, "unknown message code")
)

// fieldCodec walks the fields of one message. The same walk encodes a message
// into fields or decodes fields into a message, so both directions always
// agree on layout.
type fieldCodec interface {
	Decoding() bool
	// Version writes a literal version field, or skips one when decoding.
	Version(v int)
	Int(v *int)
	Int64(v *int64)
	Float(v *float64)
	OptFloat(v *optional.Option[float64])
	Str(v *string)
	Bool(v *bool)
	// Count handles the length of a repeated group.
	Count(n *int)
}

type fieldWriter struct {
	fields []string
}

func (w *fieldWriter) Decoding() bool { return false }

func (w *fieldWriter) Version(v int) { w.fields = append(w.fields, strconv.Itoa(v)) }

func (w *fieldWriter) Int(v *int) { w.fields = append(w.fields, strconv.Itoa(*v)) }

func (w *fieldWriter) Int64(v *int64) { w.fields = append(w.fields, strconv.FormatInt(*v, 10)) }

func (w *fieldWriter) Float(v *float64) { w.fields = append(w.fields, formatFloat(*v)) }

func (w *fieldWriter) OptFloat(v *optional.Option[float64]) {
	if v.IsNone() {
		w.fields = append(w.fields, "")

		return
	}

	w.fields = append(w.fields, formatFloat(v.Unwrap()))
}

func (w *fieldWriter) Str(v *string) { w.fields = append(w.fields, *v) }

func (w *fieldWriter) Bool(v *bool) {
	if *v {
		w.fields = append(w.fields, "1")
	} else {
		w.fields = append(w.fields, "0")
	}
}

func (w *fieldWriter) Count(n *int) { w.Int(n) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fieldReader decodes fields in order. The first failure sticks: later reads
// are no-ops and err reports it.
type fieldReader struct {
	fields []string
	pos    int
	err    error
}

func newFieldReader(fields []string) *fieldReader {
	return &fieldReader{fields: fields}
}

func (r *fieldReader) Decoding() bool { return true }

func (r *fieldReader) next() (string, bool) {
	if r.err != nil {
		return "", false
	}

	if r.pos >= len(r.fields) {
		r.err = ErrIncomplete

		return "", false
	}

	field := r.fields[r.pos]
	r.pos++

	return field, true
}

func (r *fieldReader) fail(field string, kind string, cause error) {
	r.err = errors.Wrapf(errors.ErrCodeProtocolError, cause, "field %d: %q is not a valid %s", r.pos-1, field, kind)
}

func (r *fieldReader) Version(int) { r.next() }

func (r *fieldReader) Int(v *int) {
	var n int64
	r.Int64(&n)
	*v = int(n)
}

func (r *fieldReader) Int64(v *int64) {
	field, ok := r.next()
	if !ok {
		return
	}

	if field == "" {
		*v = 0

		return
	}

	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		r.fail(field, "integer", err)

		return
	}

	*v = n
}

func (r *fieldReader) Float(v *float64) {
	field, ok := r.next()
	if !ok {
		return
	}

	if field == "" || field == unsetDouble {
		*v = 0

		return
	}

	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		r.fail(field, "number", err)

		return
	}

	*v = f
}

func (r *fieldReader) OptFloat(v *optional.Option[float64]) {
	field, ok := r.next()
	if !ok {
		return
	}

	if field == "" || field == unsetDouble {
		*v = optional.None[float64]()

		return
	}

	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		r.fail(field, "number", err)

		return
	}

	if f == math.MaxFloat64 {
		*v = optional.None[float64]()

		return
	}

	*v = optional.Some(f)
}

func (r *fieldReader) Str(v *string) {
	field, ok := r.next()
	if !ok {
		return
	}

	*v = field
}

func (r *fieldReader) Bool(v *bool) {
	field, ok := r.next()
	if !ok {
		return
	}

	*v = field == "1" || field == "true"
}

func (r *fieldReader) Count(n *int) {
	r.Int(n)
	if r.err != nil {
		*n = 0

		return
	}

	if *n < 0 || *n > maxRepeated {
		r.err = errors.Newf(errors.ErrCodeProtocolError, "repeated group count %d out of range", *n)
		*n = 0
	}
}
