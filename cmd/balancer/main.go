package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiryu-dev/roomchat/internal/adapters/probe"
	"github.com/kiryu-dev/roomchat/internal/config"
	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/internal/transport/status"
	"github.com/kiryu-dev/roomchat/internal/transport/tcp"
	"github.com/kiryu-dev/roomchat/internal/usecase/assignment"
	"github.com/kiryu-dev/roomchat/internal/usecase/monitor"
	"github.com/kiryu-dev/roomchat/internal/usecase/registry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	cfgPath := flag.String("config", "./configs/balancer.yml", "path to config")
	flag.Parse()
	cfg, err := config.NewBalancer(*cfgPath)
	if err != nil {
		logger.Fatal(err.Error())
	}

	reg := registry.New(cfg.Heartbeat.ReviveDead, logger)
	for i, s := range cfg.Endpoints() {
		if err := reg.Register(domain.Endpoint{ID: i, Host: s.Host, Port: s.Port}); err != nil {
			logger.Fatal(err.Error())
		}
	}
	var (
		table = assignment.New(reg, logger)
		mon   = monitor.New(reg, probe.New(cfg.Heartbeat.Probe), table, monitor.Config{
			Interval:    cfg.Heartbeat.Interval,
			Timeout:     cfg.Heartbeat.Timeout,
			MaxFailures: cfg.Heartbeat.MaxFailures,
		}, logger)
		balancer = tcp.NewBalancer(cfg.ListenAddr, table, cfg.HandshakeTimeout, logger)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		select {
		case s := <-sigChan:
			return errors.Errorf("captured signal: %v", s)
		case <-ctx.Done():
			return nil
		}
	})
	errGroup.Go(func() error {
		return mon.Run(ctx)
	})
	errGroup.Go(func() error {
		return balancer.ListenAndServe(ctx)
	})
	if cfg.StatusAddr != "" {
		statusSrv := status.New(cfg.StatusAddr, reg, table, logger)
		errGroup.Go(func() error {
			return statusSrv.ListenAndServe()
		})
		errGroup.Go(func() error {
			<-ctx.Done()
			return statusSrv.Shutdown()
		})
	}
	if err := errGroup.Wait(); err != nil {
		logger.Info("gracefully shutting down the balancer: " + err.Error())
	}
	if err := balancer.Shutdown(); err != nil {
		logger.Info("failed to shutdown balancer: " + err.Error())
	}
}
