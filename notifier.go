package auth

import (
	"context"
	"fmt"
	"strings"
)

// EmailMessage carries the fields every auth notification needs
type EmailMessage struct {
	Nombre string
	Email  string
	Token  string
}

// Notifier delivers confirmation and password reset emails. Delivery is
// fire-and-forget: a sink failure is logged by the caller and never aborts
// the flow that triggered it.
type Notifier interface {
	SendConfirmation(ctx context.Context, msg EmailMessage) error
	SendPasswordReset(ctx context.Context, msg EmailMessage) error
}

// ConfirmationURL builds the deep link embedded in confirmation emails
func ConfirmationURL(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/confirmar/%s", strings.TrimSuffix(baseURL, "/"), token)
}

// PasswordResetURL builds the deep link embedded in reset emails
func PasswordResetURL(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/olvide-password/%s", strings.TrimSuffix(baseURL, "/"), token)
}

// ConsoleNotifier is a development sink that prints the deep links instead
// of delivering mail.
type ConsoleNotifier struct {
	BaseURL string
	Logger  Logger
}

var _ Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(baseURL string) *ConsoleNotifier {
	return &ConsoleNotifier{
		BaseURL: baseURL,
		Logger:  defLogger{},
	}
}

func (c *ConsoleNotifier) SendConfirmation(ctx context.Context, msg EmailMessage) error {
	c.getLogger().Info(
		"confirmation email to=%s nombre=%s link=%s",
		msg.Email, msg.Nombre, ConfirmationURL(c.BaseURL, msg.Token),
	)
	return nil
}

func (c *ConsoleNotifier) SendPasswordReset(ctx context.Context, msg EmailMessage) error {
	c.getLogger().Info(
		"password reset email to=%s nombre=%s link=%s",
		msg.Email, msg.Nombre, PasswordResetURL(c.BaseURL, msg.Token),
	)
	return nil
}

func (c *ConsoleNotifier) getLogger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return defLogger{}
}

type noopNotifier struct{}

func (noopNotifier) SendConfirmation(context.Context, EmailMessage) error  { return nil }
func (noopNotifier) SendPasswordReset(context.Context, EmailMessage) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
