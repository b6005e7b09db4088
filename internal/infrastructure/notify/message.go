// Package notify delivers password reset notices, either to a Kafka topic
// consumed by the mail service or to the application log.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/99minutos/user-service/internal/core/ports"
)

const resetSubject = "Password reset request"

var resetBody = template.Must(template.New("reset").Parse(
	`Hello {{.Name}},

We received a request to reset the password for your account.
Open the link below to choose a new password:

{{.Link}}

The link expires at {{.ExpiresAt}}. If you did not ask for a reset you can ignore this message.
`))

// Message is the rendered notification as published to consumers.
type Message struct {
	Type      string    `json:"type"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResetLink joins the reset page URL and the token.
func ResetLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/" + token
}

// RenderPasswordReset builds the message for a reset notice.
func RenderPasswordReset(n ports.PasswordResetNotice) (Message, error) {
	link := ResetLink(n.ResetURL, n.Token)

	var body bytes.Buffer
	err := resetBody.Execute(&body, map[string]string{
		"Name":      n.Name,
		"Link":      link,
		"ExpiresAt": n.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render reset message: %w", err)
	}

	return Message{
		Type:      "password_reset",
		To:        n.Email,
		Subject:   resetSubject,
		Body:      body.String(),
		Link:      link,
		ExpiresAt: n.ExpiresAt.UTC(),
	}, nil
}
