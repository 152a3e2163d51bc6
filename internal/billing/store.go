package billing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidState        = errors.New("invalid invoice state")
	ErrPaymentNotPending   = errors.New("payment not pending")
	ErrReminderAlreadySent = errors.New("reminder already sent")
	ErrDuplicateReference  = errors.New("duplicate payment reference")
)

type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Discount    float64
	Total       float64
}

type CreateInvoiceInput struct {
	ClientID    string
	SiteID      string
	PeriodStart string
	PeriodEnd   string
	Currency    string
	Subtotal    float64
	TaxAmount   float64
	Total       float64
	Lines       []LineInput
	CreatedBy   string
}

type CreatePaymentInput struct {
	InvoiceID      string
	Reference      string
	Amount         float64
	Method         string
	MobileOperator string
	MobileNumber   string
	TransactionID  string
	PaymentDate    string
	CreatedBy      string
}

// ConfirmPaymentResult reports the invoice after confirmation so callers can
// trigger the paid-invoice side effects (receipt, reactivation) exactly when
// the transition to payee happened.
type ConfirmPaymentResult struct {
	Payment    Payment
	Invoice    Invoice
	AmountPaid float64
	BecamePaid bool
}

type Store interface {
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	ListInvoices(ctx context.Context, clientID, status string) ([]Invoice, error)
	ListLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error)
	// RecomputeTotals replaces the caller-supplied line and invoice totals
	// with the server-side formula and returns the refreshed invoice.
	RecomputeTotals(ctx context.Context, invoiceID string) (Invoice, error)
	ValidateInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	SendInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	CancelInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	SetInvoicePDF(ctx context.Context, invoiceID, path string) error
	AmountPaid(ctx context.Context, invoiceID string) (float64, error)

	CreatePayment(ctx context.Context, input CreatePaymentInput) (Payment, error)
	GetPayment(ctx context.Context, paymentID string) (Payment, error)
	ListPayments(ctx context.Context, invoiceID string) ([]Payment, error)
	ConfirmPayment(ctx context.Context, paymentID string, at time.Time) (ConfirmPaymentResult, error)
	FailPayment(ctx context.Context, paymentID string) (Payment, error)
	SetReceiptPDF(ctx context.Context, paymentID, path string) error

	// ListOverdueInvoices returns invoices in envoyee/partiellement_payee
	// whose period_end is before the given day.
	ListOverdueInvoices(ctx context.Context, today time.Time) ([]Invoice, error)
	// RecordReminder inserts the (invoice, type) row; ErrReminderAlreadySent
	// when the stage was already recorded, which makes reruns no-ops.
	RecordReminder(ctx context.Context, invoiceID, reminderType string) (Reminder, error)
	ReminderSent(ctx context.Context, invoiceID, reminderType string) (bool, error)
	ListReminders(ctx context.Context, invoiceID string) ([]Reminder, error)
}
