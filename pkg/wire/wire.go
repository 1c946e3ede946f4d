package wire

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	// LoadQueryName and LoadQueryRoom form the reserved handshake a balancer
	// sends to ask a chat server for its current session count.
	LoadQueryName = "__LoadBalancer__"
	LoadQueryRoom = "__getLoad?__"

	readBufSize = 4096
	// MaxMessageSize caps a field that has not been terminated yet. Longer
	// runs are cut at this size.
	MaxMessageSize = 64 << 10
)

var ErrMalformedHandshake = errors.New("malformed handshake")

type Handshake struct {
	Name string
	Room string
}

func (h Handshake) IsLoadQuery() bool {
	return h.Name == LoadQueryName && h.Room == LoadQueryRoom
}

// Split cuts a raw chunk into fields. Newlines and NUL bytes both separate
// fields, so newline-joined writes and NUL-padded fixed buffers decode alike.
func Split(chunk []byte) []string {
	fields := strings.FieldsFunc(string(chunk), isSeparator)
	result := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, "\r")
		if strings.TrimSpace(f) == "" {
			continue
		}
		result = append(result, f)
	}
	return result
}

func isSeparator(r rune) bool {
	return r == '\n' || r == 0
}

// Reader yields one field per Next call regardless of how the peer
// grouped its writes. A read that fills the whole buffer may stop in the
// middle of a field, so its unterminated tail is held back and joined with
// the next read. The end of a short read counts as a field boundary.
type Reader struct {
	src     io.Reader
	buf     []byte
	carry   []byte
	pending []string
}

func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		buf: make([]byte, readBufSize),
	}
}

func (r *Reader) Next() (string, error) {
	for len(r.pending) == 0 {
		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.consume(r.buf[:n], n == len(r.buf))
		}
		if err != nil {
			if len(r.carry) > 0 {
				r.flush(len(r.carry))
			}
			if len(r.pending) == 0 {
				return "", err
			}
		}
	}
	field := r.pending[0]
	r.pending = r.pending[1:]
	return field, nil
}

func (r *Reader) consume(chunk []byte, full bool) {
	r.carry = append(r.carry, chunk...)
	if !full {
		r.flush(len(r.carry))
		return
	}
	cut := bytes.LastIndexFunc(r.carry, isSeparator) + 1
	if cut == 0 && len(r.carry) >= MaxMessageSize {
		cut = len(r.carry)
	}
	if cut > 0 {
		r.flush(cut)
	}
}

// flush splits the first n carried bytes into pending fields and keeps the
// rest for the next read.
func (r *Reader) flush(n int) {
	r.pending = append(r.pending, Split(r.carry[:n])...)
	rest := copy(r.carry, r.carry[n:])
	r.carry = r.carry[:rest]
}

// ReadHandshake pulls the name and the room from next. Any failure before
// both fields arrive is reported as ErrMalformedHandshake.
func ReadHandshake(next func() (string, error)) (Handshake, error) {
	name, err := next()
	if err != nil {
		return Handshake{}, errors.WithMessagef(ErrMalformedHandshake, "read name: %s", err)
	}
	room, err := next()
	if err != nil {
		return Handshake{}, errors.WithMessagef(ErrMalformedHandshake, "read room: %s", err)
	}
	return Handshake{
		Name: strings.TrimSpace(name),
		Room: strings.TrimSpace(room),
	}, nil
}
