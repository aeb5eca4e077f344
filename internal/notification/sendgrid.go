package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid caps a single request at 1000 personalizations.
const maxPersonalizations = 1000

type SendgridSender struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

func NewSendgridSender(apiKey, appName, fromEmail string) *SendgridSender {
	return &SendgridSender{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	for start := 0; start < len(msg.To); start += maxPersonalizations {
		end := min(start+maxPersonalizations, len(msg.To))
		if err := s.send(ctx, msg, msg.To[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SendgridSender) send(ctx context.Context, msg Message, recipients []string) error {
	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = s.subjPrefix + msg.Subject

	// one personalization per recipient keeps addresses private
	for _, to := range recipients {
		p := sgmail.NewPersonalization()
		p.AddTos(sgmail.NewEmail("", to))
		m.AddPersonalizations(p)
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	res, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
