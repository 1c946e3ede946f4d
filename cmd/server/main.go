package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiryu-dev/roomchat/internal/config"
	"github.com/kiryu-dev/roomchat/internal/transport/tcp"
	"github.com/kiryu-dev/roomchat/internal/transport/ws"
	"github.com/kiryu-dev/roomchat/internal/usecase/chat"
	"github.com/kiryu-dev/roomchat/internal/usecase/rooms"
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
	cfgPath := flag.String("config", "./configs/server.yml", "path to config")
	listenAddr := flag.String("listen", "", "overrides listen_addr from config")
	flag.Parse()
	cfg, err := config.NewServer(*cfgPath)
	if err != nil {
		logger.Fatal(err.Error())
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	logger = logger.With(zap.String("server", cfg.ListenAddr))

	var (
		roomsUseCase = rooms.New(cfg.EchoToSender, logger)
		chatUseCase  = chat.New(roomsUseCase, cfg.HandshakeTimeout, logger)
		server       = tcp.NewChat(cfg.ListenAddr, chatUseCase, cfg.WriteTimeout, logger)
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
		return server.ListenAndServe(ctx)
	})
	if cfg.WsAddr != "" {
		wsServer := ws.New(cfg.WsAddr, chatUseCase, roomsUseCase, cfg.WriteTimeout, logger)
		errGroup.Go(func() error {
			return wsServer.ListenAndServe()
		})
		errGroup.Go(func() error {
			<-ctx.Done()
			return wsServer.Shutdown()
		})
	}
	if err := errGroup.Wait(); err != nil {
		logger.Info("gracefully shutting down the server: " + err.Error())
	}
	if err := server.Shutdown(); err != nil {
		logger.Info("failed to shutdown server: " + err.Error())
	}
}
