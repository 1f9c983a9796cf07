package mailer

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/montivagant/wonderworks-api/models"
)

// Mailer sends transactional mail. Callers treat failures as best-effort:
// they are logged, never propagated into the parent database operation.
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct{}

// NewSMTPMailer returns a Mailer backed by the SMTP server configured via
// SMTP_HOST, SMTP_PORT and SMTP_FROM.
func NewSMTPMailer() Mailer { return &smtpMailer{} }

func (m *smtpMailer) Send(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	from := os.Getenv("SMTP_FROM")
	addr := host + ":" + port

	msg := "From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body

	var auth smtp.Auth
	if user := os.Getenv("SMTP_USER"); user != "" {
		auth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASSWORD"), host)
	}
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg))
}

// PublicBaseURL is the externally reachable host used in emailed links.
func PublicBaseURL() string {
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func VerificationBody(link string) string {
	return "Hi,\n\nConfirm your email address by opening the link below:\n" +
		link + "\n\nIf you did not create an account, ignore this message."
}

func PasswordResetBody(link string) string {
	return "Hi,\n\nReset your password by opening the link below:\n" +
		link + "\n\nThe link expires in one hour. If you did not request a reset, ignore this message."
}

func OrderConfirmationBody(order models.Order) string {
	body := fmt.Sprintf("Thanks for your order!\n\nOrder %s\n\n", order.OrderRef)
	for _, item := range order.Items {
		body += fmt.Sprintf("  %dx %s — %s\n", item.Quantity, item.Name, item.UnitPrice.StringFixed(2))
	}
	body += fmt.Sprintf("\nTotal: %s\n\nWe will email you when your payment is confirmed.", order.Total.StringFixed(2))
	return body
}

func OrderStatusBody(order models.Order) string {
	return fmt.Sprintf("Your order %s is now %s.\n\nTotal: %s",
		order.OrderRef, order.Status, order.Total.StringFixed(2))
}
