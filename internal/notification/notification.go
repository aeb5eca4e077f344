package notification

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
)

// Message is one outbound email. Each recipient receives an individual copy.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Queue accepts messages for background delivery. Enqueue never blocks and
// reports whether the message was accepted.
type Queue interface {
	Enqueue(msg Message) bool
}

// VerificationResult tells a student the outcome of a review.
func VerificationResult(to, name, title, status, remarks string) Message {
	text := fmt.Sprintf("Hello %s,\n\nYour achievement %q has been %s.", name, title, status)
	if remarks != "" {
		text += "\n\nRemarks: " + remarks
	}
	return Message{
		To:      []string{to},
		Subject: "Achievement " + status + ": " + title,
		Text:    text,
		HTML:    paragraphs(text),
	}
}

// PasswordReset carries the one-time reset token to its owner.
func PasswordReset(to, name, resetURL string) Message {
	text := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in 10 minutes.\n\n%s\n\nIf you did not request this, ignore this email.", name, resetURL)
	return Message{
		To:      []string{to},
		Subject: "Password reset request",
		Text:    text,
		HTML:    paragraphs(text),
	}
}

// NoticePublished announces a notice to every recipient.
func NoticePublished(to []string, title, content, priority string) Message {
	text := fmt.Sprintf("[%s] %s\n\n%s", priority, title, content)
	return Message{
		To:      to,
		Subject: "New notice: " + title,
		Text:    text,
		HTML:    paragraphs(text),
	}
}

// EventAnnounced tells recipients about a newly scheduled campus event.
func EventAnnounced(to []string, title, category, venue string, startsAt time.Time, link string) Message {
	text := fmt.Sprintf("A new event has been added: %s\n\nCategory: %s\nVenue: %s\nDate: %s",
		title, category, venue, startsAt.Format("Mon, 02 Jan 2006"))
	if link != "" {
		text += "\n\nRegister: " + link
	}
	return Message{
		To:      to,
		Subject: "New event: " + title,
		Text:    text,
		HTML:    paragraphs(text),
	}
}

func paragraphs(text string) string {
	var b strings.Builder
	for _, p := range strings.Split(text, "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
