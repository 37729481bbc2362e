package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"tally/internal/domain"
	"tally/internal/service"
)

const (
	msgMissingFields      = "Missing fields."
	msgRegisterFailed     = "Username already exists or something went wrong."
	msgInvalidCredentials = "Invalid username or password."
	msgInternal           = "Something went wrong. Please try again."
)

// SessionManager resolves and manages the session cookie.
type SessionManager interface {
	Resolve(ctx context.Context, token string) (domain.Identity, bool, error)
	Destroy(ctx context.Context, token string) error
	CookieName() string
	TTL() time.Duration
	Secure() bool
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth     service.AuthService
	counters service.CounterService
	sessions SessionManager
	checks   []HealthChecker
	logger   *logrus.Logger

	metrics  *HTTPMetrics
	gatherer prometheus.Gatherer
}

func NewHandler(
	auth service.AuthService,
	counters service.CounterService,
	sessions SessionManager,
	logger *logrus.Logger,
	checks ...HealthChecker,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		auth:     auth,
		counters: counters,
		sessions: sessions,
		checks:   checks,
		logger:   logger,
	}
}

// EnableMetrics instruments every route and exposes gatherer on /metrics.
func (h *Handler) EnableMetrics(metrics *HTTPMetrics, gatherer prometheus.Gatherer) {
	h.metrics = metrics
	h.gatherer = gatherer
}

func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(requestID(), accessLog(h.logger))
	if h.metrics != nil {
		router.Use(h.metrics.Handler())
	}

	router.GET("/healthz", h.healthz)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	app := router.Group("/", h.loadSession())
	{
		app.GET("/", h.landing)
		app.POST("/register", h.register)
		app.POST("/login", h.login)
		app.GET("/logout", h.logout)

		protected := app.Group("/", requireLogin())
		protected.GET("/main", h.main)
		protected.POST("/inc", h.increment)
	}
	return nil
}

func (h *Handler) landing(c *gin.Context) {
	h.renderLanding(c, http.StatusOK, "")
}

func (h *Handler) register(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	res, err := h.auth.Register(c.Request.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			h.renderLanding(c, http.StatusOK, msgMissingFields)
		case errors.Is(err, service.ErrDuplicateUsername):
			h.renderLanding(c, http.StatusOK, msgRegisterFailed)
		default:
			h.log(c).WithError(err).Error("register user")
			h.renderLanding(c, http.StatusOK, msgRegisterFailed)
		}
		return
	}

	h.log(c).WithField("user_id", res.User.ID).Info("user registered")
	h.dropCurrentSession(c)
	h.setSessionCookie(c, res.Token)
	c.Redirect(http.StatusFound, "/main")
}

func (h *Handler) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	res, err := h.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.renderLanding(c, http.StatusOK, msgInvalidCredentials)
			return
		}
		h.log(c).WithError(err).Error("login")
		h.renderLanding(c, http.StatusOK, msgInternal)
		return
	}

	h.dropCurrentSession(c)
	h.setSessionCookie(c, res.Token)
	c.Redirect(http.StatusFound, "/main")
}

func (h *Handler) main(c *gin.Context) {
	identity, _ := currentIdentity(c)

	user, err := h.counters.View(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, service.ErrStaleSession) {
			h.forceLogout(c)
			return
		}
		h.log(c).WithError(err).Error("load counter")
		h.renderLanding(c, http.StatusInternalServerError, msgInternal)
		return
	}

	c.HTML(http.StatusOK, mainTemplate, gin.H{
		"Username": user.Username,
		"Counter":  user.Counter,
	})
}

func (h *Handler) increment(c *gin.Context) {
	identity, _ := currentIdentity(c)

	if err := h.counters.Increment(c.Request.Context(), identity); err != nil {
		if errors.Is(err, service.ErrStaleSession) {
			h.forceLogout(c)
			return
		}
		h.log(c).WithError(err).Error("increment counter")
		h.renderLanding(c, http.StatusInternalServerError, msgInternal)
		return
	}

	c.Redirect(http.StatusFound, "/main")
}

func (h *Handler) logout(c *gin.Context) {
	h.dropCurrentSession(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.log(c).WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// forceLogout ends a session whose user vanished and sends the client home.
func (h *Handler) forceLogout(c *gin.Context) {
	h.log(c).Warn("session refers to a missing user, logging out")
	h.dropCurrentSession(c)
	c.Redirect(http.StatusFound, "/")
}

// dropCurrentSession destroys the session carried by the request, if any,
// and expires the cookie.
func (h *Handler) dropCurrentSession(c *gin.Context) {
	token := c.GetString(ctxToken)
	if token == "" {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.log(c).WithError(err).Warn("destroy session")
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", h.sessions.Secure(), true)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), token, int(h.sessions.TTL().Seconds()), "/", "", h.sessions.Secure(), true)
}

func (h *Handler) renderLanding(c *gin.Context, status int, msg string) {
	c.HTML(status, landingTemplate, gin.H{"Error": msg})
}
