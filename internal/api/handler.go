package api

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"order-notify/internal/models"
	"order-notify/internal/service"
	"order-notify/internal/stripe"
	"order-notify/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	processor     *service.WebhookProcessor
	fanout        *service.FanoutService
	webhookSecret string
	env           string
}

// NewHandler creates a new HTTP handler. An empty webhookSecret enables
// the reduced-security fallback: bodies are parsed without verification.
// Not recommended for production use.
func NewHandler(processor *service.WebhookProcessor, fanout *service.FanoutService, webhookSecret, env string) *Handler {
	if webhookSecret == "" {
		util.GetLogger().Warn("No webhook signing secret configured, accepting unsigned webhook bodies")
	}
	return &Handler{
		processor:     processor,
		fanout:        fanout,
		webhookSecret: webhookSecret,
		env:           env,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/stripe-webhook", h.stripeWebhook)
	router.POST("/push", h.push)
	router.POST("/push/test", h.pushTest)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// stripeWebhook receives provider event envelopes. Signature failures are
// 400s; business-logic errors stay at 200 with ok:false so the provider
// does not retry errors a retry cannot fix.
func (h *Handler) stripeWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "failed to read request body"})
		return
	}

	if h.webhookSecret != "" {
		sig := c.GetHeader("Stripe-Signature")
		if sig == "" {
			util.WebhookSignatureFailuresTotal.Inc()
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_signature"})
			return
		}
		if err := stripe.VerifySignature(body, sig, h.webhookSecret); err != nil {
			util.WebhookSignatureFailuresTotal.Inc()
			util.GetLogger().Warn("Webhook signature verification failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}

	evt, err := stripe.ParseEvent(body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.processor.Process(c.Request.Context(), evt))
}

// push handles full notification fan-out requests
func (h *Handler) push(c *gin.Context) {
	var req models.PushNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.runFanout(c, &req)
}

// pushTest is the narrower test variant: the caller supplies only tokens,
// title and body are canned.
func (h *Handler) pushTest(c *gin.Context) {
	var req struct {
		Tokens []string `json:"fcm_tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.runFanout(c, &models.PushNotification{
		Tokens: req.Tokens,
		Title:  "Test Notification",
		Body:   "This is a test notification from order-notify",
		Data:   map[string]string{"type": "test"},
	})
}

func (h *Handler) runFanout(c *gin.Context, req *models.PushNotification) {
	resp, err := h.fanout.Send(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoTokens) || errors.Is(err, service.ErrMissingContent) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		body := gin.H{"success": false, "error": err.Error()}
		// stack traces help debugging but disclose internals; keep them
		// out of production responses
		if h.env != "production" {
			body["stack"] = string(debug.Stack())
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
