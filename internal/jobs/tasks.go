package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeInvoicePDF     = "billing:invoice_pdf"
	TypeReceiptPDF     = "billing:receipt_pdf"
	TypePayslipPDF     = "hr:payslip_pdf"
	TypeInvoiceEmail   = "billing:invoice_email"
	TypePaymentEmail   = "billing:payment_email"
	TypeUnpaidCheck    = "billing:unpaid_check"
	TypeServiceCutoff  = "operations:service_cutoff"
	TypeServiceRestore = "operations:service_restore"
)

type InvoicePDFPayload struct {
	InvoiceID string `json:"invoice_id"`
}

type ReceiptPDFPayload struct {
	PaymentID string `json:"payment_id"`
}

type PayslipPDFPayload struct {
	PayrollID string `json:"payroll_id"`
}

type InvoiceEmailPayload struct {
	InvoiceID string `json:"invoice_id"`
}

type PaymentEmailPayload struct {
	PaymentID string `json:"payment_id"`
}

type UnpaidCheckPayload struct{}

type ServiceTogglePayload struct {
	SiteID string `json:"site_id"`
}

func NewInvoicePDFTask(invoiceID string) *asynq.Task {
	payload, _ := json.Marshal(InvoicePDFPayload{InvoiceID: invoiceID})
	return asynq.NewTask(TypeInvoicePDF, payload)
}

func NewReceiptPDFTask(paymentID string) *asynq.Task {
	payload, _ := json.Marshal(ReceiptPDFPayload{PaymentID: paymentID})
	return asynq.NewTask(TypeReceiptPDF, payload)
}

func NewPayslipPDFTask(payrollID string) *asynq.Task {
	payload, _ := json.Marshal(PayslipPDFPayload{PayrollID: payrollID})
	return asynq.NewTask(TypePayslipPDF, payload)
}

func NewInvoiceEmailTask(invoiceID string) *asynq.Task {
	payload, _ := json.Marshal(InvoiceEmailPayload{InvoiceID: invoiceID})
	return asynq.NewTask(TypeInvoiceEmail, payload)
}

func NewPaymentEmailTask(paymentID string) *asynq.Task {
	payload, _ := json.Marshal(PaymentEmailPayload{PaymentID: paymentID})
	return asynq.NewTask(TypePaymentEmail, payload)
}

func NewUnpaidCheckTask() *asynq.Task {
	payload, _ := json.Marshal(UnpaidCheckPayload{})
	return asynq.NewTask(TypeUnpaidCheck, payload)
}

func NewServiceCutoffTask(siteID string) *asynq.Task {
	payload, _ := json.Marshal(ServiceTogglePayload{SiteID: siteID})
	return asynq.NewTask(TypeServiceCutoff, payload)
}

func NewServiceRestoreTask(siteID string) *asynq.Task {
	payload, _ := json.Marshal(ServiceTogglePayload{SiteID: siteID})
	return asynq.NewTask(TypeServiceRestore, payload)
}
