package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"leadflow_backend/internal/classifier"
	"leadflow_backend/internal/journey/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// JourneyService is the slice of the journey application service the
// webhook surface depends on. Narrow by design so the handler can be
// tested without the full service wiring.
type JourneyService interface {
	ProcessSubmission(ctx context.Context, sub domain.RawSubmission) (domain.Lead, error)
	HandleInboundReply(ctx context.Context, channel domain.Channel, from, body, externalID string) (domain.Intent, error)
}

// Handler handles inbound provider callbacks: form submissions and
// reply notifications from the email, SMS and voice channels.
type Handler struct {
	journeys JourneyService
	val      *validator.Validator
	log      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(journeys JourneyService, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{journeys: journeys, val: val, log: log}
}

// ---- Intake (form provider callback) ----

// IntakeRequest is the normalized form-provider payload: a form and
// response identifier plus the answered fields keyed by question label.
type IntakeRequest struct {
	FormID     string            `json:"formId" validate:"required,max=100"`
	ResponseID string            `json:"responseId" validate:"required,max=100"`
	Fields     map[string]string `json:"fields" validate:"required,min=1"`
}

// IntakeResponse reports the journey state reached for the submission.
type IntakeResponse struct {
	LeadID   string `json:"leadId"`
	State    string `json:"state"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// HandleIntake processes an inbound form submission.
// POST /api/v1/webhook/intake
func (h *Handler) HandleIntake(c *gin.Context) {
	var req IntakeRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	sub := classifier.ExtractSubmission(req.FormID, req.ResponseID, req.Fields)
	lead, err := h.journeys.ProcessSubmission(c.Request.Context(), sub)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, IntakeResponse{
		LeadID:   lead.ID.String(),
		State:    string(lead.State),
		Category: string(lead.Category),
		Priority: string(lead.Priority),
	})
}

// ---- Reply callbacks ----

// SMSReplyRequest is the SMS gateway inbound-message callback.
type SMSReplyRequest struct {
	From       string `json:"from" validate:"required,max=30"`
	Body       string `json:"body" validate:"required,max=5000"`
	MessageSID string `json:"messageSid" validate:"required,max=100"`
}

// EmailReplyRequest is the inbound-email parse callback.
type EmailReplyRequest struct {
	From      string `json:"from" validate:"required,email"`
	Subject   string `json:"subject" validate:"max=500"`
	Body      string `json:"body" validate:"required,max=50000"`
	MessageID string `json:"messageId" validate:"required,max=200"`
}

// VoiceReplyRequest is the dialer end-of-call callback carrying the
// transcript of what the lead said.
type VoiceReplyRequest struct {
	CallID     string `json:"callId" validate:"required,max=100"`
	From       string `json:"from" validate:"required,max=30"`
	Transcript string `json:"transcript" validate:"required,max=50000"`
}

// ReplyResponse reports the intent the reply resolved to.
type ReplyResponse struct {
	Intent  string `json:"intent,omitempty"`
	Ignored bool   `json:"ignored,omitempty"`
}

// HandleSMSReply records an inbound SMS reply.
// POST /api/v1/webhook/sms
func (h *Handler) HandleSMSReply(c *gin.Context) {
	var req SMSReplyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.handleReply(c, domain.ChannelSMS, req.From, req.Body, req.MessageSID)
}

// HandleEmailReply records an inbound email reply.
// POST /api/v1/webhook/email-reply
func (h *Handler) HandleEmailReply(c *gin.Context) {
	var req EmailReplyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.handleReply(c, domain.ChannelEmail, strings.ToLower(req.From), req.Body, req.MessageID)
}

// HandleVoiceReply records the transcript of a finished outbound call.
// POST /api/v1/webhook/voice
func (h *Handler) HandleVoiceReply(c *gin.Context) {
	var req VoiceReplyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	h.handleReply(c, domain.ChannelVoice, req.From, req.Transcript, req.CallID)
}

// handleReply runs the shared reply flow. A sender with no matching lead
// is acknowledged rather than erroring: providers retry non-2xx
// responses, and retrying will never make an unknown sender known.
func (h *Handler) handleReply(c *gin.Context, channel domain.Channel, from, body, externalID string) {
	intent, err := h.journeys.HandleInboundReply(c.Request.Context(), channel, from, body, externalID)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			h.log.Warn("reply from unknown sender ignored", "channel", string(channel))
			httpkit.OK(c, ReplyResponse{Ignored: true})
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, ReplyResponse{Intent: string(intent)})
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation)
		return false
	}
	return true
}
