package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/jobs"
)

type fakeBilling struct {
	billing.Store
	validateFn func(ctx context.Context, invoiceID string) (billing.Invoice, error)
	sendFn     func(ctx context.Context, invoiceID string) (billing.Invoice, error)
	confirmFn  func(ctx context.Context, paymentID string, at time.Time) (billing.ConfirmPaymentResult, error)
	payFn      func(ctx context.Context, input billing.CreatePaymentInput) (billing.Payment, error)
}

func (f fakeBilling) ValidateInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	return f.validateFn(ctx, invoiceID)
}

func (f fakeBilling) SendInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	return f.sendFn(ctx, invoiceID)
}

func (f fakeBilling) ConfirmPayment(ctx context.Context, paymentID string, at time.Time) (billing.ConfirmPaymentResult, error) {
	return f.confirmFn(ctx, paymentID, at)
}

func (f fakeBilling) CreatePayment(ctx context.Context, input billing.CreatePaymentInput) (billing.Payment, error) {
	return f.payFn(ctx, input)
}

func taskTypes(enq *fakeEnqueuer) []string {
	types := make([]string, 0, len(enq.tasks))
	for _, task := range enq.tasks {
		types = append(types, task.Type())
	}
	return types
}

func TestValidateInvoiceEnqueuesPDF(t *testing.T) {
	h := newTestHandler()
	enq := &fakeEnqueuer{}
	h.Jobs = enq
	h.Billing = fakeBilling{
		validateFn: func(ctx context.Context, invoiceID string) (billing.Invoice, error) {
			return billing.Invoice{InvoiceID: invoiceID, Status: billing.StatusValidated}, nil
		},
	}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/invoices/inv-1/actions/validate", nil), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	got := taskTypes(enq)
	if len(got) != 1 || got[0] != jobs.TypeInvoicePDF {
		t.Fatalf("expected one pdf task, got %v", got)
	}
}

func TestSendInvoiceEnqueuesEmailAndUnpaidCheck(t *testing.T) {
	h := newTestHandler()
	enq := &fakeEnqueuer{}
	h.Jobs = enq
	h.Billing = fakeBilling{
		sendFn: func(ctx context.Context, invoiceID string) (billing.Invoice, error) {
			return billing.Invoice{InvoiceID: invoiceID, Status: billing.StatusSent}, nil
		},
	}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/invoices/inv-1/actions/send", nil), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	got := taskTypes(enq)
	if len(got) != 2 || got[0] != jobs.TypeInvoiceEmail || got[1] != jobs.TypeUnpaidCheck {
		t.Fatalf("expected email then unpaid-check, got %v", got)
	}
}

func TestValidateInvoiceWrongState(t *testing.T) {
	h := newTestHandler()
	enq := &fakeEnqueuer{}
	h.Jobs = enq
	h.Billing = fakeBilling{
		validateFn: func(ctx context.Context, invoiceID string) (billing.Invoice, error) {
			return billing.Invoice{}, billing.ErrInvalidState
		},
	}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/invoices/inv-1/actions/validate", nil), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if len(enq.tasks) != 0 {
		t.Fatalf("expected no tasks on error, got %d", len(enq.tasks))
	}
}

func TestConfirmPaymentFullSettlementTriggersRestore(t *testing.T) {
	h := newTestHandler()
	enq := &fakeEnqueuer{}
	h.Jobs = enq
	siteID := "site-1"
	h.Billing = fakeBilling{
		confirmFn: func(ctx context.Context, paymentID string, at time.Time) (billing.ConfirmPaymentResult, error) {
			if !at.Equal(testNow) {
				t.Fatalf("expected handler clock, got %v", at)
			}
			return billing.ConfirmPaymentResult{
				Payment:    billing.Payment{PaymentID: paymentID, Status: billing.PaymentConfirmed},
				Invoice:    billing.Invoice{InvoiceID: "inv-1", SiteID: &siteID, Status: billing.StatusPaid},
				BecamePaid: true,
			}, nil
		},
	}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/payments/pay-1/actions/confirm", nil), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	got := taskTypes(enq)
	want := []string{jobs.TypeReceiptPDF, jobs.TypePaymentEmail, jobs.TypeServiceRestore}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestConfirmPaymentPartialSkipsRestore(t *testing.T) {
	h := newTestHandler()
	enq := &fakeEnqueuer{}
	h.Jobs = enq
	h.Billing = fakeBilling{
		confirmFn: func(ctx context.Context, paymentID string, at time.Time) (billing.ConfirmPaymentResult, error) {
			return billing.ConfirmPaymentResult{
				Payment: billing.Payment{PaymentID: paymentID, Status: billing.PaymentConfirmed},
				Invoice: billing.Invoice{InvoiceID: "inv-1", Status: billing.StatusPartiallyPaid},
			}, nil
		},
	}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/payments/pay-1/actions/confirm", nil), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	got := taskTypes(enq)
	if len(got) != 2 || got[0] != jobs.TypeReceiptPDF || got[1] != jobs.TypePaymentEmail {
		t.Fatalf("expected receipt then email only, got %v", got)
	}
}

func TestCreatePaymentMobileMoneyRequiresOperatorFields(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"invoice_id": "inv-1",
		"reference":  "REF-001",
		"amount":     50.0,
		"method":     "mobile_money",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreatePaymentUnknownMethod(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"invoice_id": "inv-1",
		"reference":  "REF-002",
		"amount":     50.0,
		"method":     "cheque",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreatePaymentDuplicateReference(t *testing.T) {
	h := newTestHandler()
	h.Billing = fakeBilling{
		payFn: func(ctx context.Context, input billing.CreatePaymentInput) (billing.Payment, error) {
			return billing.Payment{}, billing.ErrDuplicateReference
		},
	}

	body, _ := json.Marshal(map[string]any{
		"invoice_id": "inv-1",
		"reference":  "REF-003",
		"amount":     50.0,
		"method":     "cash",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "duplicate_reference" {
		t.Fatalf("expected duplicate_reference, got %s", errResp.Error.Code)
	}
}
