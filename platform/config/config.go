// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// SchedulerConfig provides settings for the asynq task queue and tick loop.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetTickInterval() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// EmailConfig provides settings for the SMTP nurture email sender.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailReplyTo() string
	GetBookingLink() string
}

// SMSConfig provides settings for the SMS gateway.
type SMSConfig interface {
	GetSMSAccountSID() string
	GetSMSAuthToken() string
	GetSMSFromNumber() string
	IsSMSEnabled() bool
}

// VoiceConfig provides settings for the AI voice dialer.
type VoiceConfig interface {
	GetVoiceAPIKey() string
	GetVoicePhoneNumberID() string
	IsVoiceEnabled() bool
}

// ChatConfig provides settings for the chat notification sink.
type ChatConfig interface {
	GetSlackBotToken() string
	GetSlackChannel() string
	IsChatEnabled() bool
}

// CRMConfig provides settings for the CRM sync client.
type CRMConfig interface {
	GetCRMAPIKey() string
	GetCRMBaseURL() string
	IsCRMEnabled() bool
}

// BookingConfig provides settings for the booking oracle.
type BookingConfig interface {
	GetBookingAPIToken() string
	GetBookingBaseURL() string
	GetBookingLink() string
	IsBookingEnabled() bool
}

// AIConfig provides settings for the AI classification collaborator.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsAIEnabled() bool
}

// TasksConfig provides settings for the team task board client.
type TasksConfig interface {
	GetTasksAPIKey() string
	GetTasksWorkspaceID() string
	GetTasksProjectID() string
	IsTasksEnabled() bool
}

// IntakeConfig provides settings for intake form identification.
type IntakeConfig interface {
	GetIntakeConnectFormID() string
	GetIntakeWholesaleFormID() string
}

// IntakeSourceConfig provides settings for polling the form provider
// directly, used to catch up on submissions whose webhooks were missed.
type IntakeSourceConfig interface {
	IntakeConfig
	GetIntakeAPIToken() string
	GetIntakeBaseURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	CORSAllowAll          bool
	CORSOrigins           []string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	TickInterval          time.Duration
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	EmailReplyTo          string
	SMSAccountSID         string
	SMSAuthToken          string
	SMSFromNumber         string
	VoiceAPIKey           string
	VoicePhoneNumberID    string
	SlackBotToken         string
	SlackChannel          string
	CRMAPIKey             string
	CRMBaseURL            string
	BookingAPIToken       string
	BookingBaseURL        string
	BookingLink           string
	GeminiAPIKey          string
	GeminiModel           string
	TasksAPIKey           string
	TasksWorkspaceID      string
	TasksProjectID        string
	IntakeConnectFormID   string
	IntakeWholesaleFormID string
	IntakeAPIToken        string
	IntakeBaseURL         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string            { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool      { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string      { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int       { return c.AsynqConcurrency }
func (c *Config) GetTickInterval() time.Duration { return c.TickInterval }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetEmailReplyTo() string     { return c.EmailReplyTo }

// SMSConfig implementation
func (c *Config) GetSMSAccountSID() string { return c.SMSAccountSID }
func (c *Config) GetSMSAuthToken() string  { return c.SMSAuthToken }
func (c *Config) GetSMSFromNumber() string { return c.SMSFromNumber }
func (c *Config) IsSMSEnabled() bool {
	return c.SMSAccountSID != "" && c.SMSAuthToken != "" && c.SMSFromNumber != ""
}

// VoiceConfig implementation
func (c *Config) GetVoiceAPIKey() string        { return c.VoiceAPIKey }
func (c *Config) GetVoicePhoneNumberID() string { return c.VoicePhoneNumberID }
func (c *Config) IsVoiceEnabled() bool          { return c.VoiceAPIKey != "" }

// ChatConfig implementation
func (c *Config) GetSlackBotToken() string { return c.SlackBotToken }
func (c *Config) GetSlackChannel() string  { return c.SlackChannel }
func (c *Config) IsChatEnabled() bool      { return c.SlackBotToken != "" }

// CRMConfig implementation
func (c *Config) GetCRMAPIKey() string  { return c.CRMAPIKey }
func (c *Config) GetCRMBaseURL() string { return c.CRMBaseURL }
func (c *Config) IsCRMEnabled() bool    { return c.CRMAPIKey != "" }

// BookingConfig implementation
func (c *Config) GetBookingAPIToken() string { return c.BookingAPIToken }
func (c *Config) GetBookingBaseURL() string  { return c.BookingBaseURL }
func (c *Config) GetBookingLink() string     { return c.BookingLink }
func (c *Config) IsBookingEnabled() bool     { return c.BookingAPIToken != "" }

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }
func (c *Config) IsAIEnabled() bool       { return c.GeminiAPIKey != "" }

// TasksConfig implementation
func (c *Config) GetTasksAPIKey() string      { return c.TasksAPIKey }
func (c *Config) GetTasksWorkspaceID() string { return c.TasksWorkspaceID }
func (c *Config) GetTasksProjectID() string   { return c.TasksProjectID }
func (c *Config) IsTasksEnabled() bool        { return c.TasksAPIKey != "" }

// IntakeConfig implementation
func (c *Config) GetIntakeConnectFormID() string   { return c.IntakeConnectFormID }
func (c *Config) GetIntakeWholesaleFormID() string { return c.IntakeWholesaleFormID }

// IntakeSourceConfig implementation
func (c *Config) GetIntakeAPIToken() string { return c.IntakeAPIToken }
func (c *Config) GetIntakeBaseURL() string  { return c.IntakeBaseURL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		TickInterval:          mustDuration(getEnv("TICK_INTERVAL", "12h")),
		EmailEnabled:          emailEnabled && smtpHost != "",
		SMTPHost:              smtpHost,
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Hume"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailReplyTo:          getEnv("EMAIL_REPLY_TO", ""),
		SMSAccountSID:         getEnv("SMS_ACCOUNT_SID", ""),
		SMSAuthToken:          getEnv("SMS_AUTH_TOKEN", ""),
		SMSFromNumber:         getEnv("SMS_FROM_NUMBER", ""),
		VoiceAPIKey:           getEnv("VOICE_API_KEY", ""),
		VoicePhoneNumberID:    getEnv("VOICE_PHONE_NUMBER_ID", ""),
		SlackBotToken:         getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannel:          getEnv("SLACK_CHANNEL", "#sales-alerts"),
		CRMAPIKey:             getEnv("CRM_API_KEY", ""),
		CRMBaseURL:            getEnv("CRM_BASE_URL", "https://api.close.com/api/v1"),
		BookingAPIToken:       getEnv("BOOKING_API_TOKEN", ""),
		BookingBaseURL:        getEnv("BOOKING_BASE_URL", "https://api.calendly.com"),
		BookingLink:           getEnv("BOOKING_LINK", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		TasksAPIKey:           getEnv("MOTION_API_KEY", ""),
		TasksWorkspaceID:      getEnv("MOTION_WORKSPACE_ID", ""),
		TasksProjectID:        getEnv("MOTION_PROJECT_ID", ""),
		IntakeConnectFormID:   getEnv("INTAKE_CONNECT_FORM_ID", ""),
		IntakeWholesaleFormID: getEnv("INTAKE_WHOLESALE_FORM_ID", ""),
		IntakeAPIToken:        getEnv("INTAKE_API_TOKEN", ""),
		IntakeBaseURL:         getEnv("INTAKE_BASE_URL", "https://api.typeform.com"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
