package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/jobs"
)

type invoiceLineRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

type createInvoiceRequest struct {
	ClientID    string               `json:"client_id"`
	SiteID      string               `json:"site_id"`
	PeriodStart string               `json:"period_start"`
	PeriodEnd   string               `json:"period_end"`
	Currency    string               `json:"currency"`
	Subtotal    float64              `json:"subtotal"`
	TaxAmount   float64              `json:"tax_amount"`
	Total       float64              `json:"total"`
	Lines       []invoiceLineRequest `json:"lines"`
}

type createPaymentRequest struct {
	InvoiceID      string  `json:"invoice_id"`
	Reference      string  `json:"reference"`
	Amount         float64 `json:"amount"`
	Method         string  `json:"method"`
	MobileOperator string  `json:"mobile_operator"`
	MobileNumber   string  `json:"mobile_number"`
	TransactionID  string  `json:"transaction_id"`
	PaymentDate    string  `json:"payment_date"`
}

func (h *Handler) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) {
	if h.Jobs == nil {
		return
	}
	if _, err := h.Jobs.EnqueueContext(ctx, task, opts...); err != nil {
		log.Printf("enqueue %s: %v", task.Type(), err)
	}
}

func (h *Handler) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateInvoice(w, r)
	case http.MethodGet:
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		invoices, err := h.Billing.ListInvoices(r.Context(), queryParam(r, "client_id"), queryParam(r, "status"))
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	if !h.can(w, r, principal, "billing", "manage") {
		return
	}
	var req createInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" || req.PeriodStart == "" || req.PeriodEnd == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "client_id, period_start, and period_end are required")
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "at least one line is required")
		return
	}
	for _, line := range req.Lines {
		if line.Description == "" || line.Quantity <= 0 || line.UnitPrice < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "lines need a description, positive quantity, and non-negative unit price")
			return
		}
	}

	input := billing.CreateInvoiceInput{
		ClientID:    req.ClientID,
		SiteID:      strings.TrimSpace(req.SiteID),
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Currency:    req.Currency,
		Subtotal:    req.Subtotal,
		TaxAmount:   req.TaxAmount,
		Total:       req.Total,
		CreatedBy:   principal.UserID,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, billing.LineInput{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Discount:    line.Discount,
			Total:       line.Total,
		})
	}

	invoice, err := h.Billing.CreateInvoice(r.Context(), input)
	if err != nil {
		status, code, msg := mapBillingError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

func (h *Handler) handleInvoiceActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/invoices/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	invoiceID := parts[0]
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		invoice, err := h.Billing.GetInvoice(r.Context(), invoiceID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	case len(parts) == 2 && parts[1] == "lines":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		lines, err := h.Billing.ListLines(r.Context(), invoiceID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	case len(parts) == 2 && parts[1] == "payments":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		payments, err := h.Billing.ListPayments(r.Context(), invoiceID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, payments)
	case len(parts) == 2 && parts[1] == "reminders":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reminders, err := h.Billing.ListReminders(r.Context(), invoiceID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, reminders)
	case len(parts) == 3 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleInvoiceAction(w, r, invoiceID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleInvoiceAction(w http.ResponseWriter, r *http.Request, invoiceID, action string) {
	var invoice billing.Invoice
	var err error
	switch action {
	case "validate":
		invoice, err = h.Billing.ValidateInvoice(r.Context(), invoiceID)
		if err == nil {
			h.enqueue(r.Context(), jobs.NewInvoicePDFTask(invoice.InvoiceID))
		}
	case "send":
		invoice, err = h.Billing.SendInvoice(r.Context(), invoiceID)
		if err == nil {
			h.enqueue(r.Context(), jobs.NewInvoiceEmailTask(invoice.InvoiceID))
			// One-shot safety net so a freshly sent invoice that is already
			// overdue gets its first reminder without waiting for the batch.
			h.enqueue(r.Context(), jobs.NewUnpaidCheckTask(), asynq.ProcessIn(h.SendCheckDelay))
		}
	case "cancel":
		invoice, err = h.Billing.CancelInvoice(r.Context(), invoiceID)
	case "recompute":
		invoice, err = h.Billing.RecomputeTotals(r.Context(), invoiceID)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		status, code, msg := mapBillingError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreatePayment(w, r)
	case http.MethodGet:
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		invoiceID := queryParam(r, "invoice_id")
		if invoiceID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "invoice_id is required")
			return
		}
		payments, err := h.Billing.ListPayments(r.Context(), invoiceID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, payments)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	var req createPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)
	req.Reference = strings.TrimSpace(req.Reference)
	req.Method = strings.TrimSpace(req.Method)
	if req.InvoiceID == "" || req.Reference == "" || req.Method == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "invoice_id, reference, and method are required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "amount must be positive")
		return
	}
	switch req.Method {
	case billing.MethodCash, billing.MethodTransfer, billing.MethodCard:
	case billing.MethodMobileMoney:
		if req.MobileOperator == "" || req.MobileNumber == "" || req.TransactionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "mobile_operator, mobile_number, and transaction_id are required for mobile money")
			return
		}
		if !billing.ValidMobileOperator(req.MobileOperator) {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown mobile operator")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown payment method")
		return
	}

	payment, err := h.Billing.CreatePayment(r.Context(), billing.CreatePaymentInput{
		InvoiceID:      req.InvoiceID,
		Reference:      req.Reference,
		Amount:         req.Amount,
		Method:         req.Method,
		MobileOperator: req.MobileOperator,
		MobileNumber:   req.MobileNumber,
		TransactionID:  req.TransactionID,
		PaymentDate:    req.PaymentDate,
		CreatedBy:      principal.UserID,
	})
	if err != nil {
		status, code, msg := mapBillingError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) handlePaymentActions(w http.ResponseWriter, r *http.Request) {
	paymentID, action, ok := pathAction(r.URL.Path, "/api/payments/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, authed := requireStaff(w, r); !authed {
		return
	}
	if action == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		payment, err := h.Billing.GetPayment(r.Context(), paymentID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, payment)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "confirm":
		result, err := h.Billing.ConfirmPayment(r.Context(), paymentID, h.now())
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		h.enqueue(r.Context(), jobs.NewReceiptPDFTask(result.Payment.PaymentID))
		h.enqueue(r.Context(), jobs.NewPaymentEmailTask(result.Payment.PaymentID))
		if result.BecamePaid && result.Invoice.SiteID != nil {
			h.enqueue(r.Context(), jobs.NewServiceRestoreTask(*result.Invoice.SiteID))
		}
		writeJSON(w, http.StatusOK, result)
	case "fail":
		payment, err := h.Billing.FailPayment(r.Context(), paymentID)
		if err != nil {
			status, code, msg := mapBillingError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, payment)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func mapBillingError(err error) (int, string, string) {
	switch {
	case errors.Is(err, billing.ErrInvoiceNotFound):
		return http.StatusNotFound, "invoice_not_found", "invoice not found"
	case errors.Is(err, billing.ErrPaymentNotFound):
		return http.StatusNotFound, "payment_not_found", "payment not found"
	case errors.Is(err, billing.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "invoice state does not allow this action"
	case errors.Is(err, billing.ErrPaymentNotPending):
		return http.StatusConflict, "payment_not_pending", "payment already settled"
	case errors.Is(err, billing.ErrDuplicateReference):
		return http.StatusConflict, "duplicate_reference", "payment reference already used"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
