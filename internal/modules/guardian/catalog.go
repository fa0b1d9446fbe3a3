package guardian

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/hostguard/guardian-backend/internal/domain"
)

//go:embed locales.yaml
var localesYAML []byte

type alertStrings struct {
	Subject           string `yaml:"subject"`
	Title             string `yaml:"title"`
	Intro             string `yaml:"intro"`
	SeverityLabel     string `yaml:"severity_label"`
	RiskLabel         string `yaml:"risk_label"`
	ConversationLabel string `yaml:"conversation_label"`
	TimeLabel         string `yaml:"time_label"`
	MessageLabel      string `yaml:"message_label"`
	ActionLabel       string `yaml:"action_label"`
	SummaryLabel      string `yaml:"summary_label"`
	CTA               string `yaml:"cta"`
	Footer            string `yaml:"footer"`
}

type guestStrings struct {
	Subject         string `yaml:"subject"`
	Title           string `yaml:"title"`
	Intro           string `yaml:"intro"`
	TranscriptLabel string `yaml:"transcript_label"`
	CTA             string `yaml:"cta"`
	Footer          string `yaml:"footer"`
}

type localeStrings struct {
	Alert alertStrings `yaml:"alert"`
	Guest guestStrings `yaml:"guest"`
	SMS   string       `yaml:"sms"`
}

type catalog map[string]localeStrings

func loadCatalog(raw []byte) (catalog, error) {
	var c catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse notification catalog: %w", err)
	}
	if _, ok := c[types.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("notification catalog missing default language %q", types.DefaultLanguage)
	}
	return c, nil
}

// lookup returns the strings for lang, falling back to the default language.
func (c catalog) lookup(lang string) localeStrings {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if s, ok := c[lang]; ok {
		return s
	}
	return c[types.DefaultLanguage]
}

// fill substitutes {key} placeholders.
func fill(s string, kv map[string]string) string {
	if len(kv) == 0 {
		return s
	}
	pairs := make([]string, 0, len(kv)*2)
	for k, v := range kv {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
