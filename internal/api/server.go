// Package api exposes the front-desk HTTP API over gin.
package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymdesk/internal/apperr"
	"gymdesk/internal/attendance"
	"gymdesk/internal/auth"
	"gymdesk/internal/httpmiddleware"
	"gymdesk/internal/live"
	"gymdesk/internal/membership"
	"gymdesk/internal/queue"
	"gymdesk/internal/roster"
	"gymdesk/internal/validate"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Options wires the server's collaborators.
type Options struct {
	Members    *membership.Service
	Attendance *attendance.Service
	Auth       *auth.Service
	Queue      queue.Queue
	Hub        live.Hub
	Limiter    *httpmiddleware.SimpleTokenBucket
	Health     map[string]HealthCheck
	PageSize   int
}

// Server holds the handlers.
type Server struct {
	members    *membership.Service
	attendance *attendance.Service
	auth       *auth.Service
	queue      queue.Queue
	hub        live.Hub
	limiter    *httpmiddleware.SimpleTokenBucket
	health     map[string]HealthCheck
	pageSize   int
}

var registerOnce sync.Once

// New creates a server and installs the custom binding tags on gin's validator.
func New(opts Options) *Server {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := validate.Register(v); err != nil {
				log.Printf("register validation tags: %v", err)
			}
		}
	})
	if opts.PageSize <= 0 {
		opts.PageSize = roster.DefaultPageSize
	}
	return &Server{
		members:    opts.Members,
		attendance: opts.Attendance,
		auth:       opts.Auth,
		queue:      opts.Queue,
		hub:        opts.Hub,
		limiter:    opts.Limiter,
		health:     opts.Health,
		pageSize:   opts.PageSize,
	}
}

// Handler builds the gin engine with every route.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	signer := s.auth.Signer()

	// Streams are long-lived and stay outside the rate limiter.
	streams := r.Group("/v1/stream", auth.AdminAuth(signer))
	streams.GET("/members", s.streamMembers)
	streams.GET("/attendance/today", s.streamAttendanceToday)

	v1 := r.Group("/v1")
	if s.limiter != nil {
		v1.Use(s.limiter.GinMiddleware())
	}
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/refresh", s.refresh)

	device := v1.Group("", auth.DeviceAuth(signer))
	device.POST("/scans", s.postScan)

	admin := v1.Group("", auth.AdminAuth(signer))
	admin.POST("/devices/register", s.registerDevice)
	admin.GET("/packages", s.listPackages)
	admin.POST("/members", s.createMember)
	admin.GET("/members", s.listMembers)
	admin.GET("/members/lookup", s.lookupMembers)
	admin.GET("/members/:id", s.getMember)
	admin.POST("/members/:id/renewals", s.renewMember)
	admin.GET("/members/:id/renewals", s.listRenewals)
	admin.POST("/checkins", s.checkIn)
	admin.POST("/guests", s.registerGuest)
	admin.GET("/attendance", s.attendanceReport)
	admin.GET("/reports/dashboard", s.dashboard)
	admin.GET("/reports/visits", s.visits)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// writeError renders err in the apperr shape and logs causes the caller
// does not see.
func writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict:
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(apperr.HTTPStatus(err), apperr.Body(err))
}

// bindJSON decodes the body into dst, writing a 400 with per-field messages
// when it does not validate.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	if fields := validate.Messages(err); len(fields) > 0 {
		writeError(c, apperr.Validation(fields))
		return false
	}
	writeError(c, apperr.Field("body", "Format data tidak valid"))
	return false
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		if strings.HasPrefix(c.Request.URL.Path, "/v1/stream/") {
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
		}

		c.Next()
	}
}
