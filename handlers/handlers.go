package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pi-gateway/apperr"
	"pi-gateway/logging"
	"pi-gateway/models"
	"pi-gateway/monitoring"
	"pi-gateway/service"
)

// IdentityVerifier resolves a bearer token to a user. In production this is
// the platform's identity endpoint.
type IdentityVerifier interface {
	Me(ctx context.Context, accessToken string) (*models.User, error)
}

// PaymentHandler is the HTTP boundary of the gateway.
type PaymentHandler struct {
	gateway  *service.Gateway
	identity IdentityVerifier
}

// New creates the handler.
func New(gateway *service.Gateway, identity IdentityVerifier) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, identity: identity}
}

// HandleAction is the single payments endpoint: it binds the action envelope,
// resolves the caller for every action except auth_verify, and dispatches to
// the router.
func (h *PaymentHandler) HandleAction(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "", apperr.Newf(apperr.InvalidArgument, "invalid request body: %v", err))
		return
	}

	action, err := models.ParseAction(req.Action)
	if err != nil {
		h.fail(c, req.Action, err)
		return
	}

	var caller *models.Caller
	if action.RequiresAuth() {
		caller, err = h.resolveCaller(ctx, c.GetHeader("Authorization"))
		if err != nil {
			h.fail(c, req.Action, err)
			return
		}
	}

	result, err := h.gateway.Handle(ctx, caller, action, &req)
	if err != nil {
		logger := logging.WithTraceContext(span)
		e := apperr.From(err)
		logger.Error("payment action failed",
			zap.String("action", req.Action),
			zap.String("kind", e.Kind.String()),
			zap.Error(err),
		)
		h.fail(c, req.Action, err)
		return
	}

	recordAction(ctx, req.Action, "success")
	body := gin.H{"success": true, "data": result.Data}
	for k, v := range result.Extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// resolveCaller verifies the bearer token against the identity provider.
// Missing or unverifiable tokens fail the whole request before any
// action-specific logic runs.
func (h *PaymentHandler) resolveCaller(ctx context.Context, authorization string) (*models.Caller, error) {
	token := strings.TrimPrefix(authorization, "Bearer ")
	if token == "" || token == authorization {
		return nil, apperr.New(apperr.Unauthorized, "missing bearer token")
	}
	user, err := h.identity.Me(ctx, token)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid caller identity")
	}
	if user.UID == "" {
		return nil, apperr.New(apperr.Unauthorized, "invalid caller identity")
	}
	return &models.Caller{UID: user.UID, Username: user.Username}, nil
}

// fail writes the uniform error envelope: {error, status?, data?}. The
// upstream HTTP status and parsed body ride along only for upstream failures.
func (h *PaymentHandler) fail(c *gin.Context, actionName string, err error) {
	e := apperr.From(err)
	recordAction(c.Request.Context(), actionName, e.Kind.String())

	body := gin.H{"error": e.Message}
	if e.UpstreamStatus != 0 {
		body["status"] = e.UpstreamStatus
	}
	if e.Data != nil {
		body["data"] = e.Data
	}
	c.JSON(e.HTTPStatus(), body)
}

// HealthCheck handles health check requests.
func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func recordAction(ctx context.Context, action, status string) {
	if monitoring.ActionCounter == nil || action == "" {
		return
	}
	monitoring.ActionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}
