package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"concertlog/api/internal/config"
	"concertlog/api/internal/metrics"
	"concertlog/api/internal/middleware"
	"concertlog/api/internal/service"
)

// PingFunc reports whether a backing service is reachable.
type PingFunc func(ctx context.Context) error

type Dependencies struct {
	Users    service.UserStore
	Concerts service.ConcertStore
	// Limiter is optional.
	Limiter  service.LoginLimiter
	Notifier service.Notifier
	Checks   map[string]PingFunc
}

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	authService    *service.AuthService
	userService    *service.UserService
	concertService *service.ConcertService
	checks         map[string]PingFunc
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:            log,
		cfg:            cfg,
		authService:    service.NewAuthService(deps.Users, deps.Limiter, deps.Notifier, cfg, log),
		userService:    service.NewUserService(deps.Users, deps.Concerts, deps.Notifier, cfg, log),
		concertService: service.NewConcertService(deps.Concerts),
		checks:         deps.Checks,
	}
}

func (h HandlerSet) Register(router gin.IRouter) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	auth := middleware.Auth(h.authService, h.log)

	users := router.Group("/users")
	{
		users.POST("", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/:id/avatar", h.GetAvatar)

		users.POST("/logout", auth, h.Logout)
		users.POST("/logoutAll", auth, h.LogoutAll)
		users.GET("/me", auth, h.Me)
		users.PATCH("/me", auth, h.UpdateMe)
		users.DELETE("/me", auth, h.DeleteMe)
		users.POST("/me/avatar", auth, h.UploadAvatar)
		users.DELETE("/me/avatar", auth, h.DeleteAvatar)
	}

	concerts := router.Group("/concerts", auth)
	{
		concerts.POST("", h.CreateConcert)
		concerts.GET("", h.ListConcerts)
		concerts.GET("/:id", h.GetConcert)
		concerts.PATCH("/:id", h.UpdateConcert)
		concerts.DELETE("/:id", h.DeleteConcert)
	}
}
