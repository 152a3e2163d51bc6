package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/crm"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/mailer"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/operations"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/pdf"
)

// Enqueuer is the slice of asynq.Client the handlers use to chain follow-up
// tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Handlers struct {
	Billing    billing.Store
	CRM        crm.Store
	Operations operations.Store
	HR         hr.Store
	Mailer     mailer.Mailer
	Renderer   *pdf.Renderer
	Documents  *pdf.DiskStore
	Client     Enqueuer

	// Now is replaceable in tests. Nil means time.Now.
	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) HandleInvoicePDF(ctx context.Context, t *asynq.Task) error {
	var payload InvoicePDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	invoice, err := h.Billing.GetInvoice(ctx, payload.InvoiceID)
	if err != nil {
		return err
	}
	lines, err := h.Billing.ListLines(ctx, invoice.InvoiceID)
	if err != nil {
		return err
	}
	client, err := h.CRM.GetClient(ctx, invoice.ClientID)
	if err != nil {
		return err
	}
	data, name, err := h.Renderer.Invoice(invoice, lines, clientName(client))
	if err != nil {
		return err
	}
	path, err := h.Documents.Save(name, data)
	if err != nil {
		return err
	}
	return h.Billing.SetInvoicePDF(ctx, invoice.InvoiceID, path)
}

func (h *Handlers) HandleReceiptPDF(ctx context.Context, t *asynq.Task) error {
	var payload ReceiptPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	payment, err := h.Billing.GetPayment(ctx, payload.PaymentID)
	if err != nil {
		return err
	}
	invoice, err := h.Billing.GetInvoice(ctx, payment.InvoiceID)
	if err != nil {
		return err
	}
	client, err := h.CRM.GetClient(ctx, invoice.ClientID)
	if err != nil {
		return err
	}
	data, name, err := h.Renderer.Receipt(payment, invoice, clientName(client))
	if err != nil {
		return err
	}
	path, err := h.Documents.Save(name, data)
	if err != nil {
		return err
	}
	return h.Billing.SetReceiptPDF(ctx, payment.PaymentID, path)
}

func (h *Handlers) HandlePayslipPDF(ctx context.Context, t *asynq.Task) error {
	var payload PayslipPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	payroll, err := h.HR.GetPayroll(ctx, payload.PayrollID)
	if err != nil {
		return err
	}
	employee, err := h.HR.GetEmployee(ctx, payroll.EmployeeID)
	if err != nil {
		return err
	}
	data, name, err := h.Renderer.Payslip(payroll, employee)
	if err != nil {
		return err
	}
	path, err := h.Documents.Save(name, data)
	if err != nil {
		return err
	}
	return h.HR.SetPayrollPDF(ctx, payroll.PayrollID, path)
}

// HandleInvoiceEmail delivers the invoice to the client. A send failure is
// returned so the task retries.
func (h *Handlers) HandleInvoiceEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	invoice, err := h.Billing.GetInvoice(ctx, payload.InvoiceID)
	if err != nil {
		return err
	}
	client, err := h.CRM.GetClient(ctx, invoice.ClientID)
	if err != nil {
		return err
	}
	msg, err := mailer.Render(mailer.TemplateInvoiceSent, mailer.Vars{
		"client_name":    clientName(client),
		"invoice_number": invoice.InvoiceNumber,
		"total":          money(invoice.Total),
		"due_date":       invoice.PeriodEnd,
	})
	if err != nil {
		return err
	}
	return h.Mailer.Send(ctx, client.Email, msg.Subject, msg.Body)
}

func (h *Handlers) HandlePaymentEmail(ctx context.Context, t *asynq.Task) error {
	var payload PaymentEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	payment, err := h.Billing.GetPayment(ctx, payload.PaymentID)
	if err != nil {
		return err
	}
	invoice, err := h.Billing.GetInvoice(ctx, payment.InvoiceID)
	if err != nil {
		return err
	}
	client, err := h.CRM.GetClient(ctx, invoice.ClientID)
	if err != nil {
		return err
	}
	paid, err := h.Billing.AmountPaid(ctx, invoice.InvoiceID)
	if err != nil {
		return err
	}
	msg, err := mailer.Render(mailer.TemplatePaymentConfirmed, mailer.Vars{
		"client_name":    clientName(client),
		"invoice_number": invoice.InvoiceNumber,
		"amount":         money(payment.Amount),
		"balance":        money(billing.Balance(invoice.Total, paid)),
	})
	if err != nil {
		return err
	}
	return h.Mailer.Send(ctx, client.Email, msg.Subject, msg.Body)
}

var reminderTemplates = map[string]string{
	billing.ReminderJ3:  mailer.TemplateReminderJ3,
	billing.ReminderJ7:  mailer.TemplateReminderJ7,
	billing.ReminderJ14: mailer.TemplateReminderJ14,
}

// HandleUnpaidCheck is the dunning batch. Each overdue invoice gets at most
// the single most severe reminder stage it has not received yet; past the
// final stage the service cutoff is scheduled on every run until the invoice
// is settled. Per-invoice failures are logged and do not abort the batch.
func (h *Handlers) HandleUnpaidCheck(ctx context.Context, t *asynq.Task) error {
	today := h.now()
	invoices, err := h.Billing.ListOverdueInvoices(ctx, today)
	if err != nil {
		return err
	}
	processed := 0
	for _, invoice := range invoices {
		if err := h.remind(ctx, invoice, today); err != nil {
			log.Printf("dunning: invoice %s: %v", invoice.InvoiceNumber, err)
			continue
		}
		processed++
	}
	log.Printf("dunning: checked %d invoices, %d processed", len(invoices), processed)
	return nil
}

func (h *Handlers) remind(ctx context.Context, invoice billing.Invoice, today time.Time) error {
	due, err := time.Parse("2006-01-02", invoice.PeriodEnd)
	if err != nil {
		return fmt.Errorf("bad due date %q: %w", invoice.PeriodEnd, err)
	}
	stage, ok := billing.ReminderStageFor(daysBetween(due, today))
	if !ok {
		return nil
	}

	// The cutoff re-fires on every run while the invoice stays unpaid, so a
	// meter switched back on out of band is cut again. The cutoff itself only
	// touches meters still active.
	if stage == billing.ReminderJ14 && invoice.SiteID != nil && h.Client != nil {
		if _, err := h.Client.EnqueueContext(ctx, NewServiceCutoffTask(*invoice.SiteID)); err != nil {
			return err
		}
	}

	if _, err := h.Billing.RecordReminder(ctx, invoice.InvoiceID, stage); err != nil {
		if errors.Is(err, billing.ErrReminderAlreadySent) {
			return nil
		}
		return err
	}

	client, err := h.CRM.GetClient(ctx, invoice.ClientID)
	if err != nil {
		return err
	}
	paid, err := h.Billing.AmountPaid(ctx, invoice.InvoiceID)
	if err != nil {
		return err
	}
	msg, err := mailer.Render(reminderTemplates[stage], mailer.Vars{
		"client_name":    clientName(client),
		"invoice_number": invoice.InvoiceNumber,
		"balance":        money(billing.Balance(invoice.Total, paid)),
		"due_date":       invoice.PeriodEnd,
	})
	if err != nil {
		return err
	}
	// The stage is already recorded, so a failed send surfaces for the batch
	// to log without re-firing the reminder next run.
	return h.Mailer.Send(ctx, client.Email, msg.Subject, msg.Body)
}

// HandleServiceCutoff deactivates every active meter at the site. Meters
// already off are filtered out by the store, so reruns are no-ops.
func (h *Handlers) HandleServiceCutoff(ctx context.Context, t *asynq.Task) error {
	var payload ServiceTogglePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	return h.toggleService(ctx, payload.SiteID, false)
}

// HandleServiceRestore reactivates meters that were cut off at the site.
func (h *Handlers) HandleServiceRestore(ctx context.Context, t *asynq.Task) error {
	var payload ServiceTogglePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	return h.toggleService(ctx, payload.SiteID, true)
}

func (h *Handlers) toggleService(ctx context.Context, siteID string, activate bool) error {
	wantActive := !activate
	meters, err := h.Operations.ListMetersBySite(ctx, siteID, &wantActive)
	if err != nil {
		return err
	}
	if len(meters) == 0 {
		return nil
	}

	site, err := h.CRM.GetSite(ctx, siteID)
	if err != nil {
		return err
	}
	client, err := h.CRM.GetClient(ctx, site.ClientID)
	if err != nil {
		return err
	}
	template := mailer.TemplateServiceDeactivated
	if activate {
		template = mailer.TemplateServiceReactivated
	}
	msg, err := mailer.Render(template, mailer.Vars{
		"client_name": clientName(client),
		"site_name":   site.Name,
	})
	if err != nil {
		return err
	}

	for _, meter := range meters {
		if activate {
			_, err = h.Operations.ActivateService(ctx, meter.MeterID)
		} else {
			_, err = h.Operations.DeactivateService(ctx, meter.MeterID)
		}
		if err != nil {
			return err
		}
		if !activate {
			// A cutoff notice accompanies each meter switched off.
			mailer.Silent(h.Mailer).Send(ctx, client.Email, msg.Subject, msg.Body)
		}
	}
	if activate {
		// Restoration gets a single notice covering the whole site.
		mailer.Silent(h.Mailer).Send(ctx, client.Email, msg.Subject, msg.Body)
	}
	return nil
}

func clientName(client crm.Client) string {
	return client.FirstName + " " + client.LastName
}

func money(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
