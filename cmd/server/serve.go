package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/wfunc/essay-arena/internal/api"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/database"
	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/game"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/service"
	"github.com/wfunc/essay-arena/internal/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP与WebSocket服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(config.Get())
		},
	}
}

// serveRun 组装组件并运行到收到退出信号
func serveRun(cfg *config.Config) error {
	log := logger.GetLogger()
	defer logger.Sync()

	log.Info("正在启动服务",
		zap.String("version", Version),
		zap.String("mode", cfg.Server.Mode),
		zap.String("config", config.ConfigFile()))

	if err := database.Init(&cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error("关闭数据库失败", zap.Error(err))
		}
	}()
	db := database.GetDB()
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	sessions := websocket.NewRegistry(m)
	dispatcher := websocket.NewDispatcher(sessions, m)
	services := service.NewServices(db, service.Options{
		Settings: game.LiveSettings(),
		Presence: cfg.Presence,
		Notifier: dispatcher,
		Metrics:  m,
	})
	wsServer := websocket.NewServer(cfg.WebSocket, sessions, websocket.NewHandler(sessions, dispatcher, services))

	opts := api.RouterOptions{
		Mode:          ginMode(cfg.Server.Mode),
		WebSocketPath: cfg.WebSocket.Path,
		WebSocket:     wsServer,
	}
	if cfg.Monitor.Enabled {
		opts.MetricsPath = cfg.Monitor.MetricsPath
		opts.Gatherer = registry
	}
	router := api.NewRouter(db, services, opts, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	config.Watch(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
		log.Info("配置已重新加载", zap.String("log_level", newCfg.Log.Level))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP服务已启动", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("正在优雅关闭服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, errors.ErrTimeout, "HTTP服务关闭超时")
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx, cfg.WebSocket.PingInterval)
	})
	g.Go(func() error {
		return services.Sweeper.Run(gctx)
	})
	g.Go(func() error {
		return services.Janitor.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("服务异常退出", zap.Error(err))
		return err
	}
	log.Info("服务已安全关闭")
	return nil
}

// ginMode 将运行模式映射为gin模式
func ginMode(mode string) string {
	switch mode {
	case "production", "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
