package billing

import "time"

// Invoice statuses keep the business vocabulary used on printed documents.
const (
	StatusDraft         = "brouillon"
	StatusValidated     = "validee"
	StatusSent          = "envoyee"
	StatusPartiallyPaid = "partiellement_payee"
	StatusPaid          = "payee"
	StatusCancelled     = "annulee"
)

type Invoice struct {
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	SiteID        *string   `json:"site_id,omitempty"`
	PeriodStart   string    `json:"period_start"`
	PeriodEnd     string    `json:"period_end"`
	Currency      string    `json:"currency"`
	Subtotal      float64   `json:"subtotal"`
	TaxAmount     float64   `json:"tax_amount"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
	PDFPath       string    `json:"pdf_path,omitempty"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type InvoiceLine struct {
	LineID      string  `json:"line_id"`
	InvoiceID   string  `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// LineTotal is the server-side recomputation of a line amount. Stored totals
// are caller-supplied; RecomputeTotals applies this formula when a caller
// asks the server to close the gap.
func LineTotal(quantity, unitPrice, discount float64) float64 {
	return quantity*unitPrice - discount
}

const (
	MethodCash        = "cash"
	MethodTransfer    = "virement"
	MethodMobileMoney = "mobile_money"
	MethodCard        = "carte"

	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

var MobileOperators = []string{"mpesa", "airtel", "vodacom", "orange"}

func ValidMobileOperator(operator string) bool {
	for _, op := range MobileOperators {
		if op == operator {
			return true
		}
	}
	return false
}

type Payment struct {
	PaymentID      string    `json:"payment_id"`
	InvoiceID      string    `json:"invoice_id"`
	Reference      string    `json:"reference"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method"`
	Status         string    `json:"status"`
	MobileOperator string    `json:"mobile_operator,omitempty"`
	MobileNumber   string    `json:"mobile_number,omitempty"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	PaymentDate    string    `json:"payment_date"`
	ReceiptPath    string    `json:"receipt_path,omitempty"`
	CreatedBy      *string   `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	ReminderJ3  = "j3"
	ReminderJ7  = "j7"
	ReminderJ14 = "j14"
)

type Reminder struct {
	ReminderID   string    `json:"reminder_id"`
	InvoiceID    string    `json:"invoice_id"`
	ReminderType string    `json:"reminder_type"`
	SentAt       time.Time `json:"sent_at"`
}
