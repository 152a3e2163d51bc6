package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Mailer delivers a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New builds a mailer from a provider name. Unknown names fall back to the
// logging provider so a misconfigured environment still boots.
func New(kind, from string) Mailer {
	switch kind {
	case "", "stub", "log":
		return logMailer{from: from}
	case "noop":
		return noopMailer{}
	case "fail":
		return failMailer{}
	case "webhook":
		url := os.Getenv("MAIL_WEBHOOK_URL")
		token := os.Getenv("MAIL_WEBHOOK_TOKEN")
		if url == "" {
			return logMailer{from: from}
		}
		return webhookMailer{from: from, url: url, token: token}
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return webhookMailer{from: from, url: kind}
		}
		return logMailer{from: from}
	}
}

type logMailer struct {
	from string
}

func (m logMailer) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("mail from %s to %s: %s", m.from, to, subject)
	return nil
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

type failMailer struct{}

func (failMailer) Send(ctx context.Context, to, subject, body string) error {
	return errors.New("mail provider failure")
}

type webhookMailer struct {
	from  string
	url   string
	token string
}

func (m webhookMailer) Send(ctx context.Context, to, subject, body string) error {
	payload := map[string]string{
		"from":    m.from,
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("mail provider rejected request")
	}
	return nil
}

type silentMailer struct {
	inner Mailer
}

// Silent wraps a mailer so delivery failures are logged and swallowed.
// Courtesy notices use this; transactional mail keeps the raw mailer so
// callers see the error.
func Silent(inner Mailer) Mailer {
	return silentMailer{inner: inner}
}

func (m silentMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := m.inner.Send(ctx, to, subject, body); err != nil {
		log.Printf("mail send failed (ignored) to %s: %v", to, err)
	}
	return nil
}
