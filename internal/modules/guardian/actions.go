package guardian

import "strings"

type ActionKind string

const (
	ActionInsufficientInfo ActionKind = "insufficient_info"
	ActionWifi             ActionKind = "wifi"
	ActionCleanliness      ActionKind = "cleanliness"
	ActionNoise            ActionKind = "noise"
	ActionGeneric          ActionKind = "generic"
	ActionNoIssues         ActionKind = "no_issues"
)

type issueRule struct {
	Kind    ActionKind
	Keyword string
}

// issueRules are tried in order; the first keyword found in any key issue wins.
var issueRules = []issueRule{
	{Kind: ActionWifi, Keyword: "wifi"},
	{Kind: ActionCleanliness, Keyword: "pulizia"},
	{Kind: ActionNoise, Keyword: "rumore"},
}

var actionTexts = map[ActionKind]string{
	ActionInsufficientInfo: "URGENTE: Aggiorna le informazioni del chatbot e contatta direttamente l'ospite per fornire le informazioni mancanti.",
	ActionWifi:             "Contatta immediatamente l'ospite per risolvere il problema del WiFi. Verifica router e credenziali di accesso.",
	ActionCleanliness:      "Organizza subito un intervento di pulizia e offri le tue scuse all'ospite.",
	ActionNoise:            "Verifica la fonte del rumore e proponi una soluzione all'ospite (cambio stanza, tappi per le orecchie).",
	ActionGeneric:          "Contatta immediatamente l'ospite per comprendere e risolvere il problema.",
	ActionNoIssues:         "Contatta l'ospite per verificare la sua soddisfazione.",
}

func classifyAction(v Verdict) ActionKind {
	if v.InsufficientInfo {
		return ActionInsufficientInfo
	}
	issues := v.Details.KeyIssues
	if len(issues) == 0 {
		return ActionNoIssues
	}
	lowered := make([]string, len(issues))
	for i, s := range issues {
		lowered[i] = strings.ToLower(s)
	}
	for _, rule := range issueRules {
		for _, issue := range lowered {
			if strings.Contains(issue, rule.Keyword) {
				return rule.Kind
			}
		}
	}
	return ActionGeneric
}

// SuggestedAction returns the remediation text for a verdict.
func SuggestedAction(v Verdict) string {
	return actionTexts[classifyAction(v)]
}
