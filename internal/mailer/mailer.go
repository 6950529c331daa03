package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wneessen/go-mail"
	"voice-qa-scores-go/internal/config"
	"voice-qa-scores-go/internal/logger"
)

const (
	attachmentName = "your_scored_file.csv"
	subject        = "PFA - AI generated scores are attached!"
	bodyText       = "Please find the scored file attached."
)

// ErrMissingCredentials means no sender address or secret was available from
// configuration or environment. The CSV export path is unaffected.
var ErrMissingCredentials = errors.New("email credentials not found: set SENDER_EMAIL and SENDER_PASSWORD")

// ErrAuthentication means the relay rejected the credentials.
var ErrAuthentication = errors.New("email authentication failed: check your credentials; for Gmail use an App Password, not your regular password")

// Mailer sends the scored CSV over implicit TLS to the configured relay.
type Mailer struct {
	cfg config.SMTP
}

func New(cfg config.SMTP) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendCSV emails csvData to receiver as a fixed-name attachment. Empty
// sender/password fall back to the SENDER_EMAIL / SENDER_PASSWORD
// environment variables. Failures are classified: missing credentials,
// authentication rejected, or generic transport fault.
func (m *Mailer) SendCSV(ctx context.Context, receiver string, csvData []byte, sender, password string) error {
	log := logger.New().WithComponent("mailer").WithField("receiver", receiver)

	if sender == "" {
		sender = os.Getenv("SENDER_EMAIL")
	}
	if password == "" {
		password = os.Getenv("SENDER_PASSWORD")
	}
	if sender == "" || password == "" {
		return ErrMissingCredentials
	}

	msg := mail.NewMsg()
	if err := msg.From(sender); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", sender, err)
	}
	if err := msg.To(receiver); err != nil {
		return fmt.Errorf("invalid receiver address %q: %w", receiver, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, bodyText)
	msg.AttachReader(attachmentName, bytes.NewReader(csvData), mail.WithFileContentType(mail.TypeTextPlain))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(sender),
		mail.WithPassword(password),
	)
	if err != nil {
		return fmt.Errorf("build smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("%w (%v)", ErrAuthentication, err)
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("scored csv emailed")
	return nil
}

// isAuthError spots relay credential rejections. 535 is the SMTP
// authentication-failed reply code; Gmail's text is matched as a fallback.
func isAuthError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "535") ||
		strings.Contains(strings.ToLower(s), "authentication failed") ||
		strings.Contains(strings.ToLower(s), "username and password not accepted")
}
