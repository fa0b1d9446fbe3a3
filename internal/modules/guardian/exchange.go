package guardian

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
)

const (
	summaryMaxRunes    = 200
	noMessageAvailable = "No message available"
)

// Exchange is the latest guest turn and the assistant reply that followed
// it. Assistant is nil when the guest has not been answered yet.
type Exchange struct {
	User      *types.Message
	Assistant *types.Message
}

// loadExchange fetches the latest message of each role and drops an
// assistant message that does not come after the guest message.
func loadExchange(dbc dbctx.Context, messages repos.MessageRepo, conversationID uuid.UUID) (Exchange, error) {
	userMsg, err := messages.LatestByRole(dbc, conversationID, types.RoleUser)
	if err != nil {
		return Exchange{}, fmt.Errorf("latest user message: %w", err)
	}
	assistantMsg, err := messages.LatestByRole(dbc, conversationID, types.RoleAssistant)
	if err != nil {
		return Exchange{}, fmt.Errorf("latest assistant message: %w", err)
	}
	return pairExchange(userMsg, assistantMsg), nil
}

func pairExchange(userMsg, assistantMsg *types.Message) Exchange {
	if userMsg == nil {
		return Exchange{}
	}
	if assistantMsg != nil && !assistantMsg.CreatedAt.After(userMsg.CreatedAt) {
		assistantMsg = nil
	}
	return Exchange{User: userMsg, Assistant: assistantMsg}
}

func clock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15:04")
}

// ClassifierInput renders the exchange the way the classifier receives it.
func (e Exchange) ClassifierInput(loc *time.Location) string {
	if e.User == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Guest (")
	b.WriteString(clock(e.User.CreatedAt, loc))
	b.WriteString("): ")
	b.WriteString(e.User.Content)
	if e.Assistant != nil {
		b.WriteString("\n\nChatbot (")
		b.WriteString(clock(e.Assistant.CreatedAt, loc))
		b.WriteString("): ")
		b.WriteString(e.Assistant.Content)
	}
	return b.String()
}

// Summary is the truncated last exchange stored on an alert.
func (e Exchange) Summary(loc *time.Location) string {
	if e.User == nil {
		return noMessageAvailable
	}
	lines := []string{"[" + clock(e.User.CreatedAt, loc) + "] Ospite: " + truncateRunes(e.User.Content, summaryMaxRunes)}
	if e.Assistant != nil {
		lines = append(lines, "["+clock(e.Assistant.CreatedAt, loc)+"] Chatbot: "+truncateRunes(e.Assistant.Content, summaryMaxRunes))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
