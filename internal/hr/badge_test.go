package hr

import (
	"testing"
	"time"
)

func TestBadgeSignature(t *testing.T) {
	secret := NewBadgeSecret()
	code := NewBadgeCode("3f1c9a7e-0000-0000-0000-000000000001")

	badge := Badge{BadgeCode: code, Secret: secret}
	sig := Signature(code, secret)

	if len(sig) != 16 {
		t.Fatalf("signature length = %d, want 16", len(sig))
	}
	if !badge.VerifySignature(sig) {
		t.Fatal("valid signature rejected")
	}
	if badge.VerifySignature("0000000000000000") {
		t.Fatal("forged signature accepted")
	}
	if badge.VerifySignature("") {
		t.Fatal("empty signature accepted")
	}
}

func TestNewBadgeCodeStable(t *testing.T) {
	a := NewBadgeCode("emp-1")
	b := NewBadgeCode("emp-1")
	c := NewBadgeCode("emp-2")
	if a != b {
		t.Fatalf("badge code not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("distinct employees got the same badge code")
	}
	if len(a) != len("MWO-")+12 {
		t.Fatalf("unexpected code %q", a)
	}
}

func TestBadgeValid(t *testing.T) {
	today := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	past := "2026-01-01"
	future := "2027-01-01"

	cases := []struct {
		name  string
		badge Badge
		valid bool
	}{
		{"active no expiry", Badge{Status: BadgeActive}, true},
		{"active future expiry", Badge{Status: BadgeActive, ExpiryDate: &future}, true},
		{"expired", Badge{Status: BadgeActive, ExpiryDate: &past}, false},
		{"suspended", Badge{Status: BadgeSuspended}, false},
		{"lost", Badge{Status: BadgeLost}, false},
		{"cancelled", Badge{Status: BadgeCancelled, ExpiryDate: &future}, false},
	}
	for _, tt := range cases {
		if got := tt.badge.Valid(today); got != tt.valid {
			t.Fatalf("%s: Valid=%v, want %v", tt.name, got, tt.valid)
		}
	}
}

func TestBadgeAgencyScope(t *testing.T) {
	scoped := Badge{}
	if !scoped.CanAccessAgency("agency-1", "agency-1") {
		t.Fatal("badge must access its own agency")
	}
	if scoped.CanAccessAgency("agency-1", "agency-2") {
		t.Fatal("scoped badge must not access another agency")
	}
	roaming := Badge{AllAgencies: true}
	if !roaming.CanAccessAgency("agency-1", "agency-2") {
		t.Fatal("all-agencies badge must access any agency")
	}
}

func TestBadgeScanTypeFlags(t *testing.T) {
	badge := Badge{CanActivateMonitor: false, CanUseKiosk: true}
	if badge.AllowsScanType(ScanMonitor) {
		t.Fatal("monitor scan allowed without flag")
	}
	if !badge.AllowsScanType(ScanKiosk) {
		t.Fatal("kiosk scan denied despite flag")
	}
	if !badge.AllowsScanType(ScanPresence) {
		t.Fatal("presence scan must not be gated by capability flags")
	}
}
