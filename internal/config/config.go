package config

import (
	"os"
	"time"

	"github.com/kiryu-dev/roomchat/internal/adapters/probe"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoServers       = errors.New("there are no specified servers")
	ErrEmptyListenAddr = errors.New("listen address is empty")
	ErrUnknownProbe    = errors.New("unknown probe mode")
)

const (
	defaultBalancerAddr     = ":6000"
	defaultServerHost       = "127.0.0.1"
	defaultHeartbeatPeriod  = 5 * time.Second
	defaultProbeTimeout     = time.Second
	defaultMaxFailures      = 1
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PoolConfig struct {
	Host      string         `yaml:"host"`
	BasePort  int            `yaml:"base_port"`
	Count     int            `yaml:"count"`
	Endpoints []ServerConfig `yaml:"endpoints"`
}

type HeartbeatConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxFailures int           `yaml:"max_failures"`
	Probe       probe.Mode    `yaml:"probe"`
	ReviveDead  bool          `yaml:"revive_dead"`
}

type Balancer struct {
	ListenAddr       string          `yaml:"listen_addr"`
	StatusAddr       string          `yaml:"status_addr"`
	HandshakeTimeout time.Duration   `yaml:"handshake_timeout"`
	Servers          PoolConfig      `yaml:"servers"`
	Heartbeat        HeartbeatConfig `yaml:"heartbeat"`
}

// Endpoints expands the pool into the ordered list of chat servers. An
// explicit endpoint list wins over base_port/count.
func (b Balancer) Endpoints() []ServerConfig {
	if len(b.Servers.Endpoints) > 0 {
		return b.Servers.Endpoints
	}
	result := make([]ServerConfig, 0, b.Servers.Count)
	for i := 0; i < b.Servers.Count; i++ {
		result = append(result, ServerConfig{
			Host: b.Servers.Host,
			Port: b.Servers.BasePort + i,
		})
	}
	return result
}

type Server struct {
	ListenAddr       string        `yaml:"listen_addr"`
	WsAddr           string        `yaml:"ws_addr"`
	EchoToSender     bool          `yaml:"echo_to_sender"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

func NewBalancer(cfgPath string) (Balancer, error) {
	cfg := Balancer{}
	if err := decode(cfgPath, &cfg); err != nil {
		return Balancer{}, err
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return Balancer{}, err
	}
	return cfg, nil
}

func (b *Balancer) setDefaults() {
	if b.ListenAddr == "" {
		b.ListenAddr = defaultBalancerAddr
	}
	if b.HandshakeTimeout <= 0 {
		b.HandshakeTimeout = defaultHandshakeTimeout
	}
	if b.Servers.Host == "" {
		b.Servers.Host = defaultServerHost
	}
	for i := range b.Servers.Endpoints {
		if b.Servers.Endpoints[i].Host == "" {
			b.Servers.Endpoints[i].Host = b.Servers.Host
		}
	}
	if b.Heartbeat.Interval <= 0 {
		b.Heartbeat.Interval = defaultHeartbeatPeriod
	}
	if b.Heartbeat.Timeout <= 0 {
		b.Heartbeat.Timeout = defaultProbeTimeout
	}
	if b.Heartbeat.MaxFailures <= 0 {
		b.Heartbeat.MaxFailures = defaultMaxFailures
	}
	if b.Heartbeat.Probe == "" {
		b.Heartbeat.Probe = probe.ModeConnect
	}
}

func (b Balancer) validate() error {
	if len(b.Endpoints()) == 0 {
		return ErrNoServers
	}
	for _, s := range b.Endpoints() {
		if s.Port <= 0 || s.Port > 65535 {
			return errors.Errorf("invalid server port %d", s.Port)
		}
	}
	if !b.Heartbeat.Probe.Valid() {
		return errors.WithMessagef(ErrUnknownProbe, "'%s'", b.Heartbeat.Probe)
	}
	return nil
}

func NewServer(cfgPath string) (Server, error) {
	cfg := Server{}
	if err := decode(cfgPath, &cfg); err != nil {
		return Server{}, err
	}
	if cfg.ListenAddr == "" {
		return Server{}, ErrEmptyListenAddr
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	return cfg, nil
}

func decode(cfgPath string, v any) error {
	file, err := os.Open(cfgPath)
	if err != nil {
		return errors.WithMessage(err, "open config")
	}
	defer func() {
		_ = file.Close()
	}()
	if err := yaml.NewDecoder(file).Decode(v); err != nil {
		return errors.WithMessage(err, "decode yaml config")
	}
	return nil
}
