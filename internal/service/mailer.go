// internal/service/mailer.go
package service

import (
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer is the opaque transport capability the delivery executor depends on.
type Mailer interface {
	Send(to, toName, subject, htmlBody string) error
}

// SendGridMailer delivers via the SendGrid API.
type SendGridMailer struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func (m *SendGridMailer) Send(to, toName, subject, htmlBody string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, "", htmlBody)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}
	return nil
}

// ConsoleMailer logs instead of sending. Used when no API key is configured
// and in development.
type ConsoleMailer struct{}

func (m *ConsoleMailer) Send(to, toName, subject, htmlBody string) error {
	log.Printf("📧 [EMAIL] to=%s (%s) subject=%q (%d bytes)", to, toName, subject, len(htmlBody))
	return nil
}

// NewMailerFromEnv picks SendGrid when SENDGRID_API_KEY is set, console
// otherwise.
func NewMailerFromEnv() Mailer {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		log.Println("⚠️ Mailer in console-only mode (set SENDGRID_API_KEY for production)")
		return &ConsoleMailer{}
	}
	log.Println("✅ Mailer initialized with SendGrid")
	return &SendGridMailer{
		apiKey:    apiKey,
		fromEmail: os.Getenv("MAIL_FROM_EMAIL"),
		fromName:  os.Getenv("MAIL_FROM_NAME"),
	}
}
