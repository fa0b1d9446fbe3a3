package guardian

import (
	"bytes"
	"html/template"
)

var alertEmailTmpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; background: #f5f7fa; padding: 24px;">
  <div style="max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
    <h2 style="margin-top: 0; color: {{.Color}};">{{.S.Title}}</h2>
    <p>{{.Intro}}</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td style="padding: 6px 0; font-weight: bold;">{{.S.SeverityLabel}}</td><td style="color: {{.Color}}; font-weight: bold;">{{.Severity}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">{{.S.RiskLabel}}</td><td>{{.Risk}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">{{.S.ConversationLabel}}</td><td>#{{.ConversationID}}</td></tr>
      <tr><td style="padding: 6px 0; font-weight: bold;">{{.S.TimeLabel}}</td><td>{{.Timestamp}}</td></tr>
    </table>
    <h3>{{.S.MessageLabel}}</h3>
    <p>{{.Message}}</p>
    <h3>{{.S.ActionLabel}}</h3>
    <p style="background: #fff4e5; padding: 12px; border-radius: 6px;">{{.SuggestedAction}}</p>
    {{- if .Summary}}
    <h3>{{.S.SummaryLabel}}</h3>
    <pre style="white-space: pre-wrap; font-family: inherit; background: #f0f4f8; padding: 12px; border-radius: 6px;">{{.Summary}}</pre>
    {{- end}}
    <p style="text-align: center; margin: 24px 0;">
      <a href="{{.DashboardURL}}" style="background: #2563eb; color: #ffffff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">{{.S.CTA}}</a>
    </p>
    <p style="font-size: 12px; color: #7b8794;">{{.S.Footer}}</p>
  </div>
</body>
</html>`))

var guestEmailTmpl = template.Must(template.New("guest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; background: #f5f7fa; padding: 24px;">
  <div style="max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
    <h2 style="margin-top: 0;">{{.S.Title}}</h2>
    <p>{{.Intro}}</p>
    <h3>{{.S.TranscriptLabel}}</h3>
    <div style="background: #f0f4f8; padding: 12px; border-radius: 6px;">
      {{- range .Lines}}
      <p style="margin: 6px 0;">{{.}}</p>
      {{- end}}
    </div>
    <p style="text-align: center; margin: 24px 0;">
      <a href="{{.ChatURL}}" style="background: #2563eb; color: #ffffff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">{{.S.CTA}}</a>
    </p>
    <p style="font-size: 12px; color: #7b8794;">{{.S.Footer}}</p>
  </div>
</body>
</html>`))

type alertEmailData struct {
	S               alertStrings
	Intro           string
	Color           template.CSS
	Severity        string
	Risk            string
	ConversationID  string
	Timestamp       string
	Message         string
	SuggestedAction string
	Summary         string
	DashboardURL    string
}

type guestEmailData struct {
	S       guestStrings
	Intro   string
	Lines   []string
	ChatURL string
}

func severityColor(severity string) template.CSS {
	switch severity {
	case "critical":
		return "#c81e1e"
	case "high":
		return "#d97706"
	case "medium":
		return "#ca8a04"
	default:
		return "#2563eb"
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
