package hr

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// NewBadgeCode derives the public badge code from the employee id. The code
// is stable per employee, so re-issuing a badge keeps the printed code.
func NewBadgeCode(employeeID string) string {
	sum := sha256.Sum256([]byte(employeeID))
	code := hex.EncodeToString(sum[:])[:12]
	upper := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return "MWO-" + string(upper)
}

func NewBadgeSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Signature is the 16-hex-character keyed hash a scanning device presents
// alongside the badge code. The secret never leaves the server and the
// issued QR payload.
func Signature(badgeCode, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(badgeCode))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

func (b Badge) VerifySignature(signature string) bool {
	expected := Signature(b.BadgeCode, b.Secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Valid reports whether the badge is usable today: active status and not
// past its expiry date.
func (b Badge) Valid(today time.Time) bool {
	if b.Status != BadgeActive {
		return false
	}
	if b.ExpiryDate != nil {
		expiry, err := time.Parse("2006-01-02", *b.ExpiryDate)
		if err != nil {
			return false
		}
		if expiry.Before(today.Truncate(24 * time.Hour)) {
			return false
		}
	}
	return true
}

func (b Badge) CanAccessAgency(employeeAgencyID, agencyID string) bool {
	if b.AllAgencies {
		return true
	}
	return employeeAgencyID == agencyID
}

// AllowsScanType checks the per-badge capability flags for the scan kinds
// that carry one. Presence and door scans are gated by agency scope only.
func (b Badge) AllowsScanType(scanType string) bool {
	switch scanType {
	case ScanMonitor:
		return b.CanActivateMonitor
	case ScanKiosk:
		return b.CanUseKiosk
	}
	return true
}
