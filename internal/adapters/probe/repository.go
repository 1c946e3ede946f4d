package probe

import (
	"context"
	"net"
	"time"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/pkg/wire"
	"github.com/pkg/errors"
)

// Mode selects what a probe measures.
type Mode string

const (
	ModeConnect Mode = "connect"
	ModeLoad    Mode = "load"

	fallbackTimeout = time.Second
)

func (m Mode) Valid() bool {
	switch m {
	case ModeConnect, ModeLoad:
		return true
	}
	return false
}

type repository struct {
	mode   Mode
	dialer *net.Dialer
}

// New returns a prober. ModeConnect only checks that the server accepts a
// TCP connection; ModeLoad also asks the server for its session count.
func New(mode Mode) repository {
	return repository{
		mode:   mode,
		dialer: &net.Dialer{},
	}
}

func (r repository) Probe(ctx context.Context, addr string) (int, error) {
	conn, err := r.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, errors.WithMessagef(domain.ErrProbeFailure, "dial '%s': %s", addr, err)
	}
	defer func() {
		_ = conn.Close()
	}()
	if r.mode != ModeLoad {
		return -1, nil
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(fallbackTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, errors.WithMessagef(domain.ErrProbeFailure, "set deadline: %s", err)
	}
	query := wire.LoadQueryName + "\n" + wire.LoadQueryRoom + "\n"
	if _, err := conn.Write([]byte(query)); err != nil {
		return 0, errors.WithMessagef(domain.ErrProbeFailure, "send load query to '%s': %s", addr, err)
	}
	load, err := wire.ReadPort(conn)
	if err != nil {
		return 0, errors.WithMessagef(domain.ErrProbeFailure, "read load from '%s': %s", addr, err)
	}
	return int(load), nil
}
