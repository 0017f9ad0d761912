package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/nextudy/nextudy-api/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// TutorPromptData feeds the tutoring system prompt.
type TutorPromptData struct {
	Subject string
	Grade   string
	Format  domain.ChatFormat
}

type summaryPromptData struct {
	Title string
	Text  string
}

type itemsPromptData struct {
	Count      int
	Difficulty domain.QuizDifficulty
	Text       string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// TutorSystemPrompt renders the system prompt of the tutoring chat.
func TutorSystemPrompt(data TutorPromptData) (string, error) {
	return render("tutor.tmpl", data)
}

// BuildChatMessages prepends the tutoring system prompt to history.
func BuildChatMessages(data TutorPromptData, history []domain.ChatMessage) ([]domain.ChatMessage, error) {
	system, err := TutorSystemPrompt(data)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(history)+1)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	return append(out, history...), nil
}

// TruncateInput cuts text to at most maxChars runes.
func TruncateInput(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
