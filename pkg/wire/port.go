package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const PortSize = 4

func EncodePort(port uint32) []byte {
	b := make([]byte, PortSize)
	binary.BigEndian.PutUint32(b, port)
	return b
}

func ReadPort(r io.Reader) (uint32, error) {
	b := make([]byte, PortSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, errors.WithMessage(err, "read port")
	}
	return binary.BigEndian.Uint32(b), nil
}
