package app

import (
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/hostguard/guardian-backend/internal/clients/openai"
	"github.com/hostguard/guardian-backend/internal/clients/redis"
	"github.com/hostguard/guardian-backend/internal/clients/sendgrid"
	"github.com/hostguard/guardian-backend/internal/clients/twilio"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
	"github.com/hostguard/guardian-backend/internal/temporalx"
)

// Clients holds the outbound integrations. Every field may be nil when its
// configuration is missing; Guardian degrades instead of failing to boot.
type Clients struct {
	OpenAI   openai.Client
	SendGrid sendgrid.Client
	Twilio   twilio.Client
	Locker   redis.Locker
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// OpenAI
	if ai, err := openai.New(log, cfg.OpenAI); err != nil {
		log.Warn("OpenAI client disabled, classifier will use the fallback verdict", "error", err)
	} else {
		c.OpenAI = ai
	}

	// SendGrid
	if sg, err := sendgrid.New(log, cfg.SendGrid); err != nil {
		log.Warn("SendGrid client disabled, alert emails will not be sent", "error", err)
	} else {
		c.SendGrid = sg
	}

	// Twilio
	if tw, err := twilio.New(log, cfg.Twilio); err != nil {
		log.Info("Twilio client disabled, critical alerts are email only", "error", err)
	} else {
		c.Twilio = tw
	}

	// Redis
	if cfg.Redis.Addr != "" {
		lk, err := redis.NewLocker(log, cfg.Redis)
		if err != nil {
			c.Close()
			return Clients{}, err
		}
		c.Locker = lk
	}

	// Temporal
	if cfg.Dispatch == DispatchTemporal {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			c.Close()
			return Clients{}, err
		}
		c.Temporal = tc
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Locker != nil {
		_ = c.Locker.Close()
	}
}
