package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"tunely/internal/auth"
	"tunely/internal/models"
	"tunely/internal/service"
	"tunely/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 1 << 20

// TipIssuer issues tip payment intents
type TipIssuer interface {
	CreatePaymentIntent(ctx context.Context, user *auth.User, req *service.CreateTipRequest) (*service.CreateTipResponse, error)
}

// WebhookReceiver verifies and applies processor webhooks
type WebhookReceiver interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (service.Outcome, error)
}

// ArtistAccounts serves onboarding and ledger reads
type ArtistAccounts interface {
	CreateConnectAccount(ctx context.Context, user *auth.User, req *service.ConnectAccountRequest, origin string) (*service.ConnectAccountResponse, error)
	GetAccountStatus(ctx context.Context, user *auth.User) (*models.ArtistAccount, error)
	ListPayments(ctx context.Context, user *auth.User, limit int) ([]models.Payment, error)
}

// Sessions manages live sessions and their queues
type Sessions interface {
	CreateSession(ctx context.Context, user *auth.User, req *service.CreateSessionRequest) (*models.ArtistSession, error)
	EndSession(ctx context.Context, user *auth.User, sessionID string) (*models.ArtistSession, error)
	GetActiveSession(ctx context.Context, user *auth.User) (*models.ArtistSession, error)
	GetQueue(ctx context.Context, sessionID string) ([]models.SongQueueEntry, error)
	UpdateQueueEntryStatus(ctx context.Context, user *auth.User, entryID, status string) (*models.SongQueueEntry, error)
}

// Authenticator resolves the caller from an Authorization header
type Authenticator interface {
	VerifyHeader(header string) (*auth.User, error)
}

// ReadinessCheck reports whether a dependency is reachable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	tips           TipIssuer
	webhooks       WebhookReceiver
	artists        ArtistAccounts
	sessions       Sessions
	authenticator  Authenticator
	checks         map[string]ReadinessCheck
	publicURL      string
	allowedOrigins []string
	logger         *zap.Logger
}

// Options wires the handler's collaborators
type Options struct {
	Tips           TipIssuer
	Webhooks       WebhookReceiver
	Artists        ArtistAccounts
	Sessions       Sessions
	Authenticator  Authenticator
	Checks         map[string]ReadinessCheck
	PublicURL      string
	AllowedOrigins []string
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options) *Handler {
	return &Handler{
		tips:           opts.Tips,
		webhooks:       opts.Webhooks,
		artists:        opts.Artists,
		sessions:       opts.Sessions,
		authenticator:  opts.Authenticator,
		checks:         opts.Checks,
		publicURL:      opts.PublicURL,
		allowedOrigins: opts.AllowedOrigins,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.allowedOrigins))
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/stripe", h.stripeWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/sessions/:id/queue", h.getQueue)

		authed := v1.Group("", h.requireAuth())
		authed.POST("/payments/intents", h.createPaymentIntent)

		authed.POST("/artists/connect-account", h.createConnectAccount)
		authed.GET("/artists/me/account", h.getAccountStatus)
		authed.GET("/artists/me/payments", h.listPayments)

		authed.POST("/sessions", h.createSession)
		authed.GET("/sessions/active", h.getActiveSession)
		authed.POST("/sessions/:id/end", h.endSession)
		authed.PATCH("/queue/:id", h.updateQueueEntry)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createPaymentIntent(c *gin.Context) {
	var req service.CreateTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.tips.CreatePaymentIntent(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// stripeWebhook must see the raw body: the signature covers the exact bytes
func (h *Handler) stripeWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		util.WebhookSignatureFailuresTotal.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.webhooks.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		h.logger.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) createConnectAccount(c *gin.Context) {
	var req service.ConnectAccountRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = h.publicURL
	}

	resp, err := h.artists.CreateConnectAccount(c.Request.Context(), currentUser(c), &req, origin)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getAccountStatus(c *gin.Context) {
	account, err := h.artists.GetAccountStatus(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (h *Handler) listPayments(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	payments, err := h.artists.ListPayments(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) createSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *Handler) getActiveSession(c *gin.Context) {
	session, err := h.sessions.GetActiveSession(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *Handler) endSession(c *gin.Context) {
	session, err := h.sessions.EndSession(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) getQueue(c *gin.Context) {
	queue, err := h.sessions.GetQueue(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": queue})
}

func (h *Handler) updateQueueEntry(c *gin.Context) {
	var req service.UpdateQueueEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.sessions.UpdateQueueEntryStatus(c.Request.Context(), currentUser(c), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}
