// Package handler is the REST surface. Handlers bind and shape JSON; the
// rules live in internal/service.
package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"counseling-api/internal/auth"
	"counseling-api/internal/metrics"
	"counseling-api/internal/middleware"
	"counseling-api/internal/model"
	"counseling-api/internal/probe"
	"counseling-api/internal/service"
)

type Services struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Consultants  *service.ConsultantService
	Appointments *service.AppointmentService
	Reviews      *service.ReviewService
	Admin        *service.AdminService
	Static       *service.StaticService
	Wishes       *service.WishService
}

type Handler struct {
	svc    Services
	issuer *auth.Issuer
	log    *zap.Logger
}

func New(svc Services, issuer *auth.Issuer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, issuer: issuer, log: log}
}

type RouterConfig struct {
	CORSOrigins []string
	Limiter     *middleware.RateLimiter
	DB          probe.Pinger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		corsMiddleware(cfg.CORSOrigins),
		middleware.Metrics(),
		middleware.AccessLog(h.log),
		middleware.Errors(h.log),
	)

	r.GET("/healthz", h.health(cfg.DB))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	h.Routes(r.Group("/api"), cfg.Limiter)
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return cors.New(c)
}

func (h *Handler) Routes(api *gin.RouterGroup, limiter *middleware.RateLimiter) {
	authn := middleware.Authenticate(h.issuer)
	user := middleware.RequireRole(model.RoleUser)
	consultant := middleware.RequireRole(model.RoleConsultant)
	admin := middleware.RequireRole(model.RoleAdmin)

	limited := []gin.HandlerFunc{}
	if limiter != nil {
		limited = append(limited, middleware.RateLimit(limiter))
	}

	a := api.Group("/auth", limited...)
	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/refresh", h.refresh)
	a.POST("/logout", authn, h.logout)

	api.POST("/admin/login", append(limited, h.adminLogin)...)
	ad := api.Group("/admin", authn, admin)
	ad.POST("/consultant/create", h.createConsultant)
	ad.GET("/consultant/applications", h.listApplications)
	ad.PUT("/consultant/application/:id/review", h.reviewApplication)
	ad.GET("/appointments", h.listAllAppointments)

	u := api.Group("/user", authn, user)
	u.GET("/profile", h.profile)
	u.PUT("/update", h.updateProfile)
	u.POST("/consultant/apply", h.apply)
	u.POST("/appointments", h.createAppointment)
	u.GET("/appointments", h.listMyAppointments)
	u.POST("/appointments/:id/cancel", h.cancelAppointment)
	u.POST("/reviews", h.createReview)
	u.GET("/reviews", h.listMyReviews)

	c := api.Group("/consultant")
	c.GET("/all", h.listConsultants)
	mine := c.Group("", authn, consultant)
	mine.PUT("/update", h.updateConsultant)
	mine.POST("/avatar", h.uploadAvatar)
	mine.GET("/appointments", h.listConsultantAppointments)
	mine.POST("/appointments/:id/confirm", h.confirmAppointment)
	mine.POST("/appointments/:id/cancel", h.cancelAppointment)
	mine.GET("/reviews", h.listConsultantReviews)
	mine.GET("/reviews/stats", h.reviewStats)
	c.GET("/:id", h.getConsultant)

	s := api.Group("/static", authn)
	s.POST("/upload/wish-image", h.uploadWishImage)
	s.POST("", admin, h.uploadResource)
	s.GET("", admin, h.resourceTree)
	s.PATCH("/:id", admin, h.markResource)
	s.DELETE("/:id", admin, h.deleteResource)

	w := api.Group("/wishes", authn)
	w.GET("", user, h.listWishes)
	w.POST("", user, h.createWish)
	w.GET("/unread-count", user, h.unreadCount)
	w.POST("/mark-read", user, h.markRead)
	w.POST("/:id/like", user, h.toggleLike)
	w.GET("/:id/author", user, h.authorCard)
	w.DELETE("/:id", middleware.RequireRole(model.RoleUser, model.RoleAdmin), h.deleteWish)
}

func (h *Handler) health(db probe.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func principal(c *gin.Context) auth.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// bind decodes the JSON body into dst and records the error on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(err)
		return false
	}
	return true
}

// bindOptional is bind for bodies that may be absent; an empty body,
// chunked or not, leaves dst untouched.
func bindOptional(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(err)
		return false
	}
	return true
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

type pageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

func (q pageQuery) page() service.Page {
	return service.Page{Page: q.Page, Size: q.Size}
}
