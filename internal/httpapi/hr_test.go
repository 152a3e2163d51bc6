package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
)

type fakeHR struct {
	hr.Store
	getBadgeFn func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error)
	issueFn    func(ctx context.Context, employeeID, expiryDate string) (hr.Badge, error)
	presenceFn func(ctx context.Context, employeeID string, at time.Time) (hr.PresenceResult, error)

	scans []hr.RecordScanInput
}

func (f *fakeHR) GetBadgeByCode(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
	return f.getBadgeFn(ctx, badgeCode)
}

func (f *fakeHR) IssueBadge(ctx context.Context, employeeID, expiryDate string) (hr.Badge, error) {
	return f.issueFn(ctx, employeeID, expiryDate)
}

func (f *fakeHR) RecordScan(ctx context.Context, input hr.RecordScanInput) error {
	f.scans = append(f.scans, input)
	return nil
}

func (f *fakeHR) RecordPresence(ctx context.Context, employeeID string, at time.Time) (hr.PresenceResult, error) {
	return f.presenceFn(ctx, employeeID, at)
}

func scanBadge(t *testing.T, h *Handler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/badge-scan", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	h.Routes().ServeHTTP(resp, req)
	return resp
}

func testBadge() hr.Badge {
	return hr.Badge{
		BadgeID:    "badge-1",
		EmployeeID: "emp-1",
		BadgeCode:  "MWO-ABCDEF123456",
		Secret:     "s3cret",
		Status:     hr.BadgeActive,
	}
}

func testEmployee() hr.Employee {
	return hr.Employee{
		EmployeeID: "emp-1",
		AgencyID:   "agency-1",
		FirstName:  "Jean",
		LastName:   "Mwamba",
		Position:   "agent_guichet",
	}
}

func TestBadgeScanPresenceSuccess(t *testing.T) {
	h := newTestHandler()
	badge := testBadge()
	store := &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return badge, testEmployee(), nil
		},
		presenceFn: func(ctx context.Context, employeeID string, at time.Time) (hr.PresenceResult, error) {
			if employeeID != "emp-1" {
				t.Fatalf("unexpected employee %q", employeeID)
			}
			return hr.PresenceResult{Attendance: hr.Attendance{EmployeeID: employeeID, Status: hr.AttendancePresent}}, nil
		},
	}
	h.HR = store

	resp := scanBadge(t, h, map[string]string{
		"badge_code": badge.BadgeCode,
		"signature":  hr.Signature(badge.BadgeCode, badge.Secret),
		"scan_type":  "presence",
		"agency_id":  "agency-1",
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var scan badgeScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&scan); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if scan.Result != hr.ScanResultSuccess || scan.EmployeeName != "Jean Mwamba" {
		t.Fatalf("unexpected response: %+v", scan)
	}
	if scan.Presence == nil {
		t.Fatal("expected presence result for a presence scan")
	}
	if len(store.scans) != 1 || store.scans[0].Result != hr.ScanResultSuccess {
		t.Fatalf("expected one success log, got %+v", store.scans)
	}
}

func TestBadgeScanBadSignature(t *testing.T) {
	h := newTestHandler()
	badge := testBadge()
	store := &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return badge, testEmployee(), nil
		},
	}
	h.HR = store

	resp := scanBadge(t, h, map[string]string{
		"badge_code": badge.BadgeCode,
		"signature":  "deadbeefdeadbeef",
		"scan_type":  "door",
		"agency_id":  "agency-1",
	})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	if len(store.scans) != 1 || store.scans[0].Result != hr.ScanResultInvalid {
		t.Fatalf("expected one invalid log, got %+v", store.scans)
	}
}

func TestBadgeScanSuspendedBadge(t *testing.T) {
	h := newTestHandler()
	badge := testBadge()
	badge.Status = hr.BadgeSuspended
	store := &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return badge, testEmployee(), nil
		},
	}
	h.HR = store

	resp := scanBadge(t, h, map[string]string{
		"badge_code": badge.BadgeCode,
		"signature":  hr.Signature(badge.BadgeCode, badge.Secret),
		"scan_type":  "door",
		"agency_id":  "agency-1",
	})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "badge_invalid" {
		t.Fatalf("expected badge_invalid, got %s", errResp.Error.Code)
	}
	if len(store.scans) != 1 || store.scans[0].Result != hr.ScanResultExpired {
		t.Fatalf("expected one expired log, got %+v", store.scans)
	}
}

func TestBadgeScanForeignAgencyDenied(t *testing.T) {
	h := newTestHandler()
	badge := testBadge()
	store := &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return badge, testEmployee(), nil
		},
	}
	h.HR = store

	resp := scanBadge(t, h, map[string]string{
		"badge_code": badge.BadgeCode,
		"signature":  hr.Signature(badge.BadgeCode, badge.Secret),
		"scan_type":  "door",
		"agency_id":  "agency-2",
	})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	if len(store.scans) != 1 || store.scans[0].Result != hr.ScanResultDenied {
		t.Fatalf("expected one denied log, got %+v", store.scans)
	}
}

func TestBadgeScanAllAgenciesOverridesScope(t *testing.T) {
	h := newTestHandler()
	badge := testBadge()
	badge.AllAgencies = true
	store := &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return badge, testEmployee(), nil
		},
	}
	h.HR = store

	resp := scanBadge(t, h, map[string]string{
		"badge_code": badge.BadgeCode,
		"signature":  hr.Signature(badge.BadgeCode, badge.Secret),
		"scan_type":  "door",
		"agency_id":  "agency-2",
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBadgeScanMonitorRequiresCapability(t *testing.T) {
	h := newTestHandler()
	badge := testBadge()
	store := &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return badge, testEmployee(), nil
		},
	}
	h.HR = store

	resp := scanBadge(t, h, map[string]string{
		"badge_code": badge.BadgeCode,
		"signature":  hr.Signature(badge.BadgeCode, badge.Secret),
		"scan_type":  "monitor",
		"agency_id":  "agency-1",
	})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "scan_type_denied" {
		t.Fatalf("expected scan_type_denied, got %s", errResp.Error.Code)
	}
}

func TestBadgeScanUnknownCode(t *testing.T) {
	h := newTestHandler()
	h.HR = &fakeHR{
		getBadgeFn: func(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
			return hr.Badge{}, hr.Employee{}, hr.ErrBadgeNotFound
		},
	}

	resp := scanBadge(t, h, map[string]string{
		"badge_code": "MWO-000000000000",
		"signature":  "deadbeefdeadbeef",
		"scan_type":  "door",
		"agency_id":  "agency-1",
	})

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestBadgeScanUnknownType(t *testing.T) {
	h := newTestHandler()

	resp := scanBadge(t, h, map[string]string{
		"badge_code": "MWO-ABCDEF123456",
		"signature":  "deadbeefdeadbeef",
		"scan_type":  "drone",
		"agency_id":  "agency-1",
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestIssueBadgeReturnsSecretOnce(t *testing.T) {
	h := newTestHandler()
	h.HR = &fakeHR{
		issueFn: func(ctx context.Context, employeeID, expiryDate string) (hr.Badge, error) {
			return hr.Badge{
				BadgeID:    "badge-1",
				EmployeeID: employeeID,
				BadgeCode:  hr.NewBadgeCode(employeeID),
				Secret:     "s3cret",
				Status:     hr.BadgeActive,
			}, nil
		},
	}

	body, _ := json.Marshal(map[string]string{"employee_id": "emp-1"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/badges", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var secret string
	if err := json.Unmarshal(raw["secret"], &secret); err != nil || secret != "s3cret" {
		t.Fatalf("expected provisioning secret in response, got %s", raw["secret"])
	}
	var badgeFields map[string]any
	if err := json.Unmarshal(raw["badge"], &badgeFields); err != nil {
		t.Fatalf("decode badge: %v", err)
	}
	if _, leaked := badgeFields["secret"]; leaked {
		t.Fatal("badge object must not serialize its secret")
	}
}
