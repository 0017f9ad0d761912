package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// ApprovalRequest is mailed to admins when a student registers.
type ApprovalRequest struct {
	FullName    string
	Email       string
	ApprovalURL string
}

// AccountDecision tells a user their account was activated or rejected.
type AccountDecision struct {
	FullName string
	LoginURL string
}

// LoginCode carries a one-time login code.
type LoginCode struct {
	Code       string
	TTLMinutes int
}

// TodoReminder lists the todos due today.
type TodoReminder struct {
	FullName string
	Todos    []string
	URL      string
}

// Render builds a message from the named template. The template's first
// line is the subject.
func Render(name string, to []string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render mail template %s: %w", name, err)
	}
	subject, body, _ := strings.Cut(buf.String(), "\n")
	return Message{
		To:      to,
		Subject: strings.TrimSpace(subject),
		Text:    strings.TrimSpace(body) + "\n",
	}, nil
}
