package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betbot/clobauth/internal/bootstrap"
	"github.com/betbot/clobauth/internal/metrics"
	"github.com/betbot/clobauth/internal/signerd"
	"github.com/betbot/clobauth/pkg/config"
	"github.com/betbot/clobauth/pkg/logger"
	"github.com/betbot/clobauth/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径 (.yaml/.yml/.json)")
	listen := flag.String("listen", "", "监听地址，覆盖 signerd.listen")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Signerd.Listen = *listen
	}
	if err := logger.Init(cfg.Log); err != nil {
		logger.Errorf("初始化日志失败: %v", err)
		os.Exit(1)
	}
	defer logger.Close()
	log := logger.WithComponent("signerd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if cfg.Wallet.Remote.URL != "" {
		log.Error("signerd 必须持有本地私钥或助记词，不能再指向远程签名服务")
		os.Exit(1)
	}
	signer, err := bootstrap.NewSigner(ctx, cfg.Wallet)
	if err != nil {
		log.WithError(err).Error("初始化签名者失败")
		os.Exit(1)
	}
	if signer == nil {
		log.Error("未配置 wallet.private_key 或 wallet.mnemonic")
		os.Exit(1)
	}
	if err := signerd.CheckListen(cfg.Signerd.Listen, cfg.Signerd.Token); err != nil {
		log.WithError(err).Error("拒绝启动")
		os.Exit(1)
	}
	if cfg.Signerd.Token == "" {
		log.Warn("signerd.token 未配置，/v1 接口仅对本机开放且不做鉴权")
	}

	m := metrics.Default()
	srv, err := signerd.New(signerd.Config{Signer: signer, Token: cfg.Signerd.Token, Metrics: m})
	if err != nil {
		log.WithError(err).Error("初始化 signerd 失败")
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Signerd.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	sm := shutdown.NewManager()
	sm.OnShutdown("http", httpSrv.Shutdown)

	if cfg.Metrics.Enabled {
		ms, err := m.StartAsync(ctx, cfg.Metrics.Listen)
		if err != nil {
			log.WithError(err).Error("启动指标服务失败")
			os.Exit(1)
		}
		sm.OnShutdown("metrics", ms.Shutdown)
		log.Infof("metrics listening on %s", ms.Addr)
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", signer.Address().Hex()).Infof("signerd listening on %s", cfg.Signerd.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if failed := sm.Shutdown(shutdownCtx); failed > 0 {
		os.Exit(1)
	}
	log.Info("signerd stopped")
}
