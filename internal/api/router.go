package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/essay-arena/internal/database"
	"github.com/wfunc/essay-arena/internal/middleware"
	"github.com/wfunc/essay-arena/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterOptions 路由可选依赖
type RouterOptions struct {
	Mode          string
	WebSocketPath string
	WebSocket     http.Handler
	MetricsPath   string
	Gatherer      prometheus.Gatherer
}

// Router API路由器
type Router struct {
	engine   *gin.Engine
	db       *gorm.DB
	players  *PlayerHandler
	attacks  *AttackHandler
	presence *PresenceHandler
	opts     RouterOptions
	log      *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, services *service.Services, opts RouterOptions, log *zap.Logger) *Router {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.WebSocketPath == "" {
		opts.WebSocketPath = "/ws"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	r := &Router{
		engine:   engine,
		db:       db,
		players:  NewPlayerHandler(services.Ledger, services.Cooldown, services.Attacks),
		attacks:  NewAttackHandler(services.Attacks),
		presence: NewPresenceHandler(services.Presence),
		opts:     opts,
		log:      log,
	}
	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	project := v1.Group("/projects/:project")
	{
		project.GET("/players", r.players.ListPlayers)

		player := project.Group("/players/:user")
		{
			player.GET("", r.players.GetState)
			player.GET("/cooldown", r.players.GetCooldown)
			player.POST("/reviews", r.players.AdmitReview)
			player.GET("/attacks", r.players.ListAttacks)
			player.GET("/incoming", r.players.ListIncoming)
		}

		attacks := project.Group("/attacks")
		{
			attacks.POST("", r.attacks.Initiate)
			attacks.GET("/:id", r.attacks.Get)
			attacks.POST("/:id/defend", r.attacks.Defend)
		}

		project.GET("/presence", r.presence.ListActive)
		project.DELETE("/presence/:user", r.presence.Forget)
	}

	if r.opts.WebSocket != nil {
		r.engine.GET(r.opts.WebSocketPath, gin.WrapH(r.opts.WebSocket))
	}
	if r.opts.Gatherer != nil {
		r.engine.GET(r.opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(r.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})

	r.log.Debug("路由已注册", zap.Int("routes", len(r.engine.Routes())))
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, r.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
