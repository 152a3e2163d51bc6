package mailer

import (
	"context"
	"strings"
	"testing"
)

func TestNewFallsBackToLog(t *testing.T) {
	for _, kind := range []string{"", "stub", "log", "mystery"} {
		if _, ok := New(kind, "noreply@mwolo.cd").(logMailer); !ok {
			t.Fatalf("kind %q: expected log mailer", kind)
		}
	}
}

func TestNewByKind(t *testing.T) {
	if _, ok := New("noop", "").(noopMailer); !ok {
		t.Fatal("expected noop mailer")
	}
	if _, ok := New("fail", "").(failMailer); !ok {
		t.Fatal("expected fail mailer")
	}
	if m, ok := New("https://mail.example.test/send", "").(webhookMailer); !ok || m.url != "https://mail.example.test/send" {
		t.Fatal("expected webhook mailer with inline url")
	}
}

func TestSilentSwallowsErrors(t *testing.T) {
	m := Silent(failMailer{})
	if err := m.Send(context.Background(), "client@example.test", "sujet", "corps"); err != nil {
		t.Fatalf("silent mailer returned error: %v", err)
	}
}

func TestFailMailerReturnsError(t *testing.T) {
	if err := (failMailer{}).Send(context.Background(), "x@y", "s", "b"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRenderFillsVars(t *testing.T) {
	msg, err := Render(TemplateReminderJ7, Vars{
		"client_name":    "SARL Kivu",
		"invoice_number": "INV-2026-0042",
		"balance":        "150.00",
		"due_date":       "2026-08-15",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.Subject, "INV-2026-0042") {
		t.Fatalf("subject not rendered: %s", msg.Subject)
	}
	if !strings.Contains(msg.Body, "SARL Kivu") || strings.Contains(msg.Body, "{") {
		t.Fatalf("body not fully rendered: %s", msg.Body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := Render("no_such_template", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
