package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/megamanics/interactive/internal/bridge"
	"github.com/megamanics/interactive/internal/config"
	"github.com/megamanics/interactive/internal/history"
	"github.com/megamanics/interactive/internal/server"
	"github.com/megamanics/interactive/internal/server/auth"
	"github.com/megamanics/interactive/internal/server/ws"
	"github.com/megamanics/interactive/internal/transport/zmq"
	"github.com/megamanics/interactive/internal/util"
	"github.com/sirupsen/logrus"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	util.InitLogger()
	if cfg.LogDir != "" {
		if _, err := util.InitLoggerWithFile(cfg.LogDir); err != nil {
			logrus.Fatalf("Failed to initialize log file: %v", err)
		}
		defer util.CloseLogFile()
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logrus.Fatalf("Failed to create data directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 内核传输
	messenger, err := zmq.NewMessenger(cfg.Kernel.Endpoint)
	if err != nil {
		logrus.Fatalf("Failed to connect kernel transport: %v", err)
	}
	defer messenger.Close()
	go func() {
		if err := messenger.Run(ctx); err != nil && ctx.Err() == nil {
			logrus.Errorf("ZMQ receiver exited: %v", err)
		}
	}()

	// 关联匹配与连接器
	matcher := bridge.NewMatcher()
	go func() {
		if err := matcher.Run(ctx, messenger); err != nil && ctx.Err() == nil {
			logrus.Errorf("Reply matcher exited: %v", err)
		}
	}()
	connector := bridge.NewConnector(messenger, matcher, nil)
	defer connector.Dispose()

	// 交换历史
	store, err := history.NewStoreWithConfig(cfg.History.DBPath, &history.Config{
		MaxOpenConns:           cfg.History.MaxOpenConns,
		MaxIdleConns:           cfg.History.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.History.ConnMaxLifetimeSeconds,
	})
	if err != nil {
		logrus.Fatalf("Failed to open history store: %v", err)
	}
	defer store.Close()
	historySub, cancelHistorySub := connector.Subscribe()
	defer cancelHistorySub()
	go history.Record(store, historySub)

	// 事件推送 hub
	hub := ws.NewHub()
	go hub.Run(ctx.Done())
	hubSub, cancelHubSub := connector.Subscribe()
	defer cancelHubSub()
	go func() {
		for item := range hubSub {
			hub.Broadcast(ws.FrameOf(item))
		}
	}()

	// HTTP 服务
	srv := server.NewServer(server.Options{
		ListenAddr:      cfg.ListenAddr,
		JWTSecret:       cfg.Auth.JWTSecret,
		ExchangeTimeout: time.Duration(cfg.Kernel.TimeoutSeconds) * time.Second,
		Connector:       connector,
		History:         store,
		Hub:             hub,
	})
	if auth.Enabled() {
		token, err := auth.GenerateToken("host")
		if err != nil {
			logrus.Fatalf("Failed to generate API token: %v", err)
		}
		logrus.Infof("API token: %s", token)
	}
	go func() {
		if err := srv.Start(); err != nil {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	logrus.Info("Interactive kernel bridge started successfully")

	// 优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logrus.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown: %v", err)
	}
	connector.Dispose()
	cancel()

	logrus.Info("Shutdown complete")
}
