package domain

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoServersAvailable = errors.New("no servers available")
	ErrProbeFailure       = errors.New("probe failure")
	ErrUnknownEndpoint    = errors.New("unknown endpoint")
	ErrDuplicateEndpoint  = errors.New("duplicate endpoint")
)

type Liveness byte

const (
	Alive = Liveness(iota)
	Suspect
	Dead
)

func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Suspect:
		return "suspect"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

func (l Liveness) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

type Endpoint struct {
	ID        int       `json:"id"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	State     Liveness  `json:"state"`
	LastProbe time.Time `json:"last_probe"`
	Load      int       `json:"load"`
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

type ServerRegistry interface {
	Register(endpoint Endpoint) error
	MarkAlive(id int) (changed bool, err error)
	MarkSuspect(id int) (changed bool, err error)
	MarkDead(id int) (changed bool, err error)
	SetLoad(id int, load int) error
	Get(id int) (Endpoint, error)
	ListAlive() []Endpoint
	All() []Endpoint
}

// Prober checks a single chat server. A negative load means the probe
// does not measure load.
type Prober interface {
	Probe(ctx context.Context, addr string) (load int, err error)
}
