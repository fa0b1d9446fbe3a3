package app

import (
	"fmt"
	"strings"

	"github.com/hostguard/guardian-backend/internal/clients/openai"
	"github.com/hostguard/guardian-backend/internal/clients/redis"
	"github.com/hostguard/guardian-backend/internal/clients/sendgrid"
	"github.com/hostguard/guardian-backend/internal/clients/twilio"
	"github.com/hostguard/guardian-backend/internal/data/db"
	"github.com/hostguard/guardian-backend/internal/modules/guardian"
	"github.com/hostguard/guardian-backend/internal/observability"
	"github.com/hostguard/guardian-backend/internal/pkg/envutil"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
	"github.com/hostguard/guardian-backend/internal/temporalx"
)

// DispatchMode selects where the exchange pipeline runs.
type DispatchMode string

const (
	// DispatchSync runs the pipeline inside the request.
	DispatchSync DispatchMode = "sync"
	// DispatchTemporal hands each exchange to a Temporal workflow.
	DispatchTemporal DispatchMode = "temporal"
)

func ParseDispatchMode(s string) (DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(DispatchSync), "inline":
		return DispatchSync, nil
	case string(DispatchTemporal):
		return DispatchTemporal, nil
	default:
		return "", fmt.Errorf("unknown GUARDIAN_DISPATCH_MODE %q", s)
	}
}

type Config struct {
	Port        string
	ServiceName string

	JWTSecretKey   string
	InternalAPIKey string
	CORSOrigins    []string

	Dispatch DispatchMode
	// RunWorker starts the Temporal worker in this process.
	RunWorker        bool
	SubscriptionGate bool

	Postgres db.PostgresConfig
	Guardian guardian.Config
	OpenAI   openai.Config
	SendGrid sendgrid.Config
	Twilio   twilio.Config
	Redis    redis.Config
	Temporal temporalx.Config
	Otel     observability.OtelConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	dispatch, err := ParseDispatchMode(envutil.String("GUARDIAN_DISPATCH_MODE", string(DispatchSync)))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("SERVICE_NAME", "guardian-backend"),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		InternalAPIKey: envutil.String("INTERNAL_API_KEY", ""),
		CORSOrigins:    envutil.List("CORS_ALLOWED_ORIGINS", nil),

		Dispatch:         dispatch,
		RunWorker:        envutil.Bool("TEMPORAL_RUN_WORKER", true),
		SubscriptionGate: envutil.Bool("GUARDIAN_SUBSCRIPTION_GATE", true),

		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "guardian"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		Guardian: guardian.ConfigFromEnv(),
		OpenAI:   openai.ConfigFromEnv(),
		SendGrid: sendgrid.ConfigFromEnv(),
		Twilio:   twilio.ConfigFromEnv(),
		Redis:    redis.ConfigFromEnv(),
		Temporal: temporalx.LoadConfig(),
		Otel:     observability.OtelConfigFromEnv(),
	}

	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set, host endpoints will reject every token")
	}
	if cfg.InternalAPIKey == "" {
		log.Warn("INTERNAL_API_KEY not set, exchange ingestion is disabled")
	}
	if cfg.Dispatch == DispatchTemporal && cfg.Temporal.Address == "" {
		return Config{}, fmt.Errorf("GUARDIAN_DISPATCH_MODE=temporal requires TEMPORAL_ADDRESS")
	}
	return cfg, nil
}
