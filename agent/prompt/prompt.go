// Package prompt builds the natural-language blocks handed to the reasoning
// capability. Templates are embedded at compile time.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/domain"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/summary_create.txt
	summaryCreateRaw string

	//go:embed template/summary_update.txt
	summaryUpdateRaw string
)

var (
	systemTmpl        = template.Must(template.New("system").Parse(systemRaw))
	summaryCreateTmpl = template.Must(template.New("summary_create").Parse(summaryCreateRaw))
	summaryUpdateTmpl = template.Must(template.New("summary_update").Parse(summaryUpdateRaw))
)

type systemData struct {
	BotName      string
	BusinessName string
	Greeting     string
	Today        string
	Branch       *domain.Branch
	Branches     []domain.Branch
	User         *domain.User
	Summary      string
	ClientID     string
	CallerPhone  string
}

// System renders the per-turn system context block.
func System(sys contractx.SystemContext) (string, error) {
	botName := sys.Client.BotName
	if botName == "" {
		botName = "the assistant"
	}
	greeting := sys.Client.GreetingMessage
	if greeting == "" {
		greeting = fmt.Sprintf("Hi, I'm %s, the assistant of %s. How can I help you?", botName, sys.Client.BusinessName)
	}

	data := systemData{
		BotName:      botName,
		BusinessName: sys.Client.BusinessName,
		Greeting:     greeting,
		Today:        sys.Now.Format("2006-01-02"),
		Branch:       sys.Branch,
		User:         sys.User,
		Summary:      sys.Summary,
		ClientID:     sys.Client.ID,
		CallerPhone:  sys.CallerPhone,
	}
	if sys.Branch == nil && len(sys.Branches) > 1 {
		data.Branches = sys.Branches
	}

	var sb strings.Builder
	if err := systemTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// SummaryCreate renders the first-summary prompt over the formatted
// conversation transcript.
func SummaryCreate(conversation string) (string, error) {
	var sb strings.Builder
	if err := summaryCreateTmpl.Execute(&sb, map[string]string{"Conversation": conversation}); err != nil {
		return "", fmt.Errorf("render summary prompt: %w", err)
	}
	return sb.String(), nil
}

// SummaryUpdate renders the rolling-summary update prompt.
func SummaryUpdate(existing, newMessages string) (string, error) {
	var sb strings.Builder
	err := summaryUpdateTmpl.Execute(&sb, map[string]string{
		"Existing":    existing,
		"NewMessages": newMessages,
	})
	if err != nil {
		return "", fmt.Errorf("render summary update prompt: %w", err)
	}
	return sb.String(), nil
}

// Transcript formats persisted messages for summarization. Only human and
// assistant messages appear; tool artifacts never reach durable history.
func Transcript(messages []domain.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		switch m.Role {
		case domain.RoleHuman:
			sb.WriteString("Caller: ")
		case domain.RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}
