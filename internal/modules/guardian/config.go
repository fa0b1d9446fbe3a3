package guardian

import (
	"strings"
	"time"
	// Alert timestamps default to Europe/Rome even on hosts without zoneinfo.
	_ "time/tzdata"

	"github.com/hostguard/guardian-backend/internal/pkg/envutil"
)

const (
	// RiskThreshold is the score at or above which a conversation is flagged.
	RiskThreshold = 0.851
	// InsufficientInfoFloor is the minimum risk of an insufficient-info verdict.
	InsufficientInfoFloor = 0.85

	DefaultTimezone = "Europe/Rome"
)

// DedupPolicy controls whether a new alert may be created while an
// unresolved one exists for the same conversation.
type DedupPolicy string

const (
	DedupUnresolved DedupPolicy = "unresolved"
	DedupNone       DedupPolicy = "none"
)

type Config struct {
	// Location renders HH:MM and email timestamps.
	Location          *time.Location
	AppBaseURL        string
	DashboardPath     string
	Dedup             DedupPolicy
	ClassifierTimeout time.Duration
}

func ConfigFromEnv() Config {
	loc, err := time.LoadLocation(envutil.String("GUARDIAN_TIMEZONE", DefaultTimezone))
	if err != nil {
		loc = time.UTC
	}
	return Config{
		Location:          loc,
		AppBaseURL:        envutil.String("APP_BASE_URL", "http://localhost:3000"),
		DashboardPath:     envutil.String("GUARDIAN_DASHBOARD_PATH", "/guardian"),
		Dedup:             ParseDedupPolicy(envutil.String("GUARDIAN_ALERT_DEDUP", string(DedupUnresolved))),
		ClassifierTimeout: envutil.Seconds("GUARDIAN_CLASSIFIER_TIMEOUT_SECONDS", 30),
	}
}

func ParseDedupPolicy(s string) DedupPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(DedupNone), "off", "false":
		return DedupNone
	default:
		return DedupUnresolved
	}
}

func (c Config) withDefaults() Config {
	if c.Location == nil {
		c.Location = time.UTC
	}
	c.AppBaseURL = strings.TrimRight(strings.TrimSpace(c.AppBaseURL), "/")
	if c.DashboardPath == "" {
		c.DashboardPath = "/guardian"
	}
	if c.Dedup == "" {
		c.Dedup = DedupUnresolved
	}
	if c.ClassifierTimeout <= 0 {
		c.ClassifierTimeout = 30 * time.Second
	}
	return c
}
