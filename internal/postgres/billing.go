package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
)

type BillingStore struct {
	pool *pgxpool.Pool
}

func NewBillingStore(pool *pgxpool.Pool) *BillingStore {
	return &BillingStore{pool: pool}
}

const invoiceColumns = `invoice_id, invoice_number, client_id, site_id, period_start, period_end, currency,
	subtotal, tax_amount, total, status, pdf_path, created_by, created_at`

const paymentColumns = `payment_id, invoice_id, reference, amount, method, status, mobile_operator,
	mobile_number, transaction_id, payment_date, receipt_path, created_by, created_at`

func (s *BillingStore) CreateInvoice(ctx context.Context, input billing.CreateInvoiceInput) (billing.Invoice, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return billing.Invoice{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	year := time.Now().UTC().Year()
	seq, err := nextInvoiceNumber(ctx, tx, year)
	if err != nil {
		return billing.Invoice{}, err
	}
	number := fmt.Sprintf("INV-%d-%04d", year, seq)

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	invoiceID := uuid.NewString()
	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (
			invoice_id, invoice_number, client_id, site_id, period_start, period_end, currency,
			subtotal, tax_amount, total, status, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
		RETURNING `+invoiceColumns+`
	`, invoiceID, number, input.ClientID, nullIfEmpty(input.SiteID), input.PeriodStart, input.PeriodEnd,
		currency, input.Subtotal, input.TaxAmount, input.Total, billing.StatusDraft, nullIfEmpty(input.CreatedBy))
	invoice, err := scanInvoice(row)
	if err != nil {
		return billing.Invoice{}, err
	}

	for _, line := range input.Lines {
		if _, err = tx.Exec(ctx, `
			INSERT INTO invoice_lines (line_id, invoice_id, description, quantity, unit_price, discount, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, uuid.NewString(), invoiceID, line.Description, line.Quantity, line.UnitPrice, line.Discount, line.Total); err != nil {
			return billing.Invoice{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return billing.Invoice{}, err
	}
	return invoice, nil
}

func (s *BillingStore) GetInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_id = $1
	`, invoiceID)
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.Invoice{}, billing.ErrInvoiceNotFound
		}
		return billing.Invoice{}, err
	}
	return invoice, nil
}

func (s *BillingStore) ListInvoices(ctx context.Context, clientID, status string) ([]billing.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE 1=1
	`
	var args []interface{}
	if clientID != "" {
		args = append(args, clientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (s *BillingStore) ListLines(ctx context.Context, invoiceID string) ([]billing.InvoiceLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT line_id, invoice_id, description, quantity, unit_price, discount, total
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY line_id ASC
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []billing.InvoiceLine
	for rows.Next() {
		var line billing.InvoiceLine
		if err := rows.Scan(&line.LineID, &line.InvoiceID, &line.Description, &line.Quantity, &line.UnitPrice, &line.Discount, &line.Total); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// RecomputeTotals re-derives every line total and the invoice subtotal/total
// from quantity, unit price and discount, replacing whatever the caller
// supplied at creation.
func (s *BillingStore) RecomputeTotals(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return billing.Invoice{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		UPDATE invoice_lines
		SET total = quantity * unit_price - discount
		WHERE invoice_id = $1
	`, invoiceID); err != nil {
		return billing.Invoice{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE invoices
		SET subtotal = sums.subtotal,
		    total = sums.subtotal + tax_amount
		FROM (
			SELECT COALESCE(SUM(total), 0) AS subtotal
			FROM invoice_lines
			WHERE invoice_id = $1
		) sums
		WHERE invoice_id = $1
		RETURNING `+invoiceColumns+`
	`, invoiceID)
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = billing.ErrInvoiceNotFound
		}
		return billing.Invoice{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return billing.Invoice{}, err
	}
	return invoice, nil
}

func (s *BillingStore) ValidateInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	return s.transition(ctx, invoiceID, billing.StatusValidated)
}

func (s *BillingStore) SendInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return billing.Invoice{}, err
	}
	// Re-sending an already sent invoice is allowed; the status stays put.
	if invoice.Status == billing.StatusSent {
		return invoice, nil
	}
	return s.transition(ctx, invoiceID, billing.StatusSent)
}

func (s *BillingStore) CancelInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	return s.transition(ctx, invoiceID, billing.StatusCancelled)
}

func (s *BillingStore) transition(ctx context.Context, invoiceID, to string) (billing.Invoice, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return billing.Invoice{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_id = $1
		FOR UPDATE
	`, invoiceID)
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = billing.ErrInvoiceNotFound
		}
		return billing.Invoice{}, err
	}
	if !billing.ValidStatusTransition(invoice.Status, to) {
		err = billing.ErrInvalidState
		return billing.Invoice{}, err
	}

	row = tx.QueryRow(ctx, `
		UPDATE invoices
		SET status = $2
		WHERE invoice_id = $1
		RETURNING `+invoiceColumns+`
	`, invoiceID, to)
	invoice, err = scanInvoice(row)
	if err != nil {
		return billing.Invoice{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return billing.Invoice{}, err
	}
	return invoice, nil
}

func (s *BillingStore) SetInvoicePDF(ctx context.Context, invoiceID, path string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET pdf_path = $2
		WHERE invoice_id = $1
	`, invoiceID, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

func (s *BillingStore) AmountPaid(ctx context.Context, invoiceID string) (float64, error) {
	var sum float64
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE invoice_id = $1 AND status = 'confirmed'
	`, invoiceID)
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (s *BillingStore) CreatePayment(ctx context.Context, input billing.CreatePaymentInput) (billing.Payment, error) {
	paymentID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO payments (
			payment_id, invoice_id, reference, amount, method, status, mobile_operator,
			mobile_number, transaction_id, payment_date, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
		RETURNING `+paymentColumns+`
	`, paymentID, input.InvoiceID, input.Reference, input.Amount, input.Method, billing.PaymentPending,
		nullIfEmpty(input.MobileOperator), nullIfEmpty(input.MobileNumber), nullIfEmpty(input.TransactionID),
		input.PaymentDate, nullIfEmpty(input.CreatedBy))
	payment, err := scanPayment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return billing.Payment{}, billing.ErrDuplicateReference
		}
		return billing.Payment{}, err
	}
	return payment, nil
}

func (s *BillingStore) GetPayment(ctx context.Context, paymentID string) (billing.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE payment_id = $1
	`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.Payment{}, billing.ErrPaymentNotFound
		}
		return billing.Payment{}, err
	}
	return payment, nil
}

func (s *BillingStore) ListPayments(ctx context.Context, invoiceID string) ([]billing.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE invoice_id = $1
		ORDER BY created_at ASC
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// ConfirmPayment marks the payment confirmed inside a transaction holding
// the invoice row, then recomputes the invoice status from the confirmed
// sum. The status never regresses from payee.
func (s *BillingStore) ConfirmPayment(ctx context.Context, paymentID string, at time.Time) (billing.ConfirmPaymentResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return billing.ConfirmPaymentResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE payment_id = $1
		FOR UPDATE
	`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = billing.ErrPaymentNotFound
		}
		return billing.ConfirmPaymentResult{}, err
	}
	if payment.Status != billing.PaymentPending {
		err = billing.ErrPaymentNotPending
		return billing.ConfirmPaymentResult{}, err
	}

	row = tx.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_id = $1
		FOR UPDATE
	`, payment.InvoiceID)
	invoice, err := scanInvoice(row)
	if err != nil {
		return billing.ConfirmPaymentResult{}, err
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	row = tx.QueryRow(ctx, `
		UPDATE payments
		SET status = 'confirmed', confirmed_at = $2
		WHERE payment_id = $1
		RETURNING `+paymentColumns+`
	`, paymentID, at)
	payment, err = scanPayment(row)
	if err != nil {
		return billing.ConfirmPaymentResult{}, err
	}

	var confirmedSum float64
	row = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE invoice_id = $1 AND status = 'confirmed'
	`, payment.InvoiceID)
	if err = row.Scan(&confirmedSum); err != nil {
		return billing.ConfirmPaymentResult{}, err
	}

	newStatus := billing.StatusForPayments(invoice.Status, invoice.Total, confirmedSum)
	becamePaid := newStatus == billing.StatusPaid && invoice.Status != billing.StatusPaid
	if newStatus != invoice.Status {
		row = tx.QueryRow(ctx, `
			UPDATE invoices
			SET status = $2
			WHERE invoice_id = $1
			RETURNING `+invoiceColumns+`
		`, invoice.InvoiceID, newStatus)
		invoice, err = scanInvoice(row)
		if err != nil {
			return billing.ConfirmPaymentResult{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return billing.ConfirmPaymentResult{}, err
	}
	return billing.ConfirmPaymentResult{
		Payment:    payment,
		Invoice:    invoice,
		AmountPaid: confirmedSum,
		BecamePaid: becamePaid,
	}, nil
}

func (s *BillingStore) FailPayment(ctx context.Context, paymentID string) (billing.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = 'failed'
		WHERE payment_id = $1 AND status = 'pending'
		RETURNING `+paymentColumns+`
	`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var status string
			if scanErr := s.pool.QueryRow(ctx, `SELECT status FROM payments WHERE payment_id = $1`, paymentID).Scan(&status); scanErr != nil {
				return billing.Payment{}, billing.ErrPaymentNotFound
			}
			return billing.Payment{}, billing.ErrPaymentNotPending
		}
		return billing.Payment{}, err
	}
	return payment, nil
}

func (s *BillingStore) SetReceiptPDF(ctx context.Context, paymentID, path string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments
		SET receipt_path = $2
		WHERE payment_id = $1
	`, paymentID, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrPaymentNotFound
	}
	return nil
}

func (s *BillingStore) ListOverdueInvoices(ctx context.Context, today time.Time) ([]billing.Invoice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE status IN ('envoyee','partiellement_payee')
		  AND period_end < $1
		ORDER BY period_end ASC
	`, today.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (s *BillingStore) RecordReminder(ctx context.Context, invoiceID, reminderType string) (billing.Reminder, error) {
	var reminder billing.Reminder
	row := s.pool.QueryRow(ctx, `
		INSERT INTO invoice_reminders (reminder_id, invoice_id, reminder_type, sent_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING reminder_id, invoice_id, reminder_type, sent_at
	`, uuid.NewString(), invoiceID, reminderType)
	if err := row.Scan(&reminder.ReminderID, &reminder.InvoiceID, &reminder.ReminderType, &reminder.SentAt); err != nil {
		if isUniqueViolation(err) {
			return billing.Reminder{}, billing.ErrReminderAlreadySent
		}
		return billing.Reminder{}, err
	}
	return reminder, nil
}

func (s *BillingStore) ReminderSent(ctx context.Context, invoiceID, reminderType string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoice_reminders
			WHERE invoice_id = $1 AND reminder_type = $2
		)
	`, invoiceID, reminderType)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *BillingStore) ListReminders(ctx context.Context, invoiceID string) ([]billing.Reminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reminder_id, invoice_id, reminder_type, sent_at
		FROM invoice_reminders
		WHERE invoice_id = $1
		ORDER BY sent_at ASC
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []billing.Reminder
	for rows.Next() {
		var reminder billing.Reminder
		if err := rows.Scan(&reminder.ReminderID, &reminder.InvoiceID, &reminder.ReminderType, &reminder.SentAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

// nextInvoiceNumber allocates the next value of the per-year invoice counter
// under a row lock, giving gapless INV-YYYY-NNNN numbers.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx, year int) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO invoice_counters (year, next_number)
		VALUES ($1, 1)
		ON CONFLICT (year)
		DO UPDATE SET next_number = invoice_counters.next_number + 1
		RETURNING next_number
	`, year)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func scanInvoice(row rowScanner) (billing.Invoice, error) {
	var invoice billing.Invoice
	var siteID, pdfPath, createdBy sql.NullString
	if err := row.Scan(&invoice.InvoiceID, &invoice.InvoiceNumber, &invoice.ClientID, &siteID,
		&invoice.PeriodStart, &invoice.PeriodEnd, &invoice.Currency, &invoice.Subtotal, &invoice.TaxAmount,
		&invoice.Total, &invoice.Status, &pdfPath, &createdBy, &invoice.CreatedAt); err != nil {
		return billing.Invoice{}, err
	}
	invoice.SiteID = nullStringPtr(siteID)
	invoice.PDFPath = nullString(pdfPath)
	invoice.CreatedBy = nullStringPtr(createdBy)
	return invoice, nil
}

func scanPayment(row rowScanner) (billing.Payment, error) {
	var payment billing.Payment
	var operator, number, transactionID, receiptPath, createdBy sql.NullString
	if err := row.Scan(&payment.PaymentID, &payment.InvoiceID, &payment.Reference, &payment.Amount,
		&payment.Method, &payment.Status, &operator, &number, &transactionID, &payment.PaymentDate,
		&receiptPath, &createdBy, &payment.CreatedAt); err != nil {
		return billing.Payment{}, err
	}
	payment.MobileOperator = nullString(operator)
	payment.MobileNumber = nullString(number)
	payment.TransactionID = nullString(transactionID)
	payment.ReceiptPath = nullString(receiptPath)
	payment.CreatedBy = nullStringPtr(createdBy)
	return payment, nil
}
