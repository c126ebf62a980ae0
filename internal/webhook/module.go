// Package webhook provides the inbound callback bounded context module.
// It receives form submissions from the intake provider and reply
// notifications from the email, SMS and voice channels, and hands them
// to the journey service.
package webhook

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(journeys JourneyService, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(journeys, val, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
// The whole surface is public and provider-facing, so it sits behind
// the shared per-IP rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(ctx.WebhookRateLimiter.RateLimit())
	group.POST("/intake", m.handler.HandleIntake)
	group.POST("/sms", m.handler.HandleSMSReply)
	group.POST("/email-reply", m.handler.HandleEmailReply)
	group.POST("/voice", m.handler.HandleVoiceReply)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
