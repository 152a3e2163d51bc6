package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
)

// Renderer produces the printable documents handed to clients and staff.
type Renderer struct {
	CompanyName string
	CompanyCity string
}

func NewRenderer() *Renderer {
	return &Renderer{
		CompanyName: "Mwolo Energy Systems",
		CompanyCity: "Kinshasa, RDC",
	}
}

// Invoice renders a validated invoice. The returned filename is relative to
// the document root: invoices/<number>.pdf.
func (r *Renderer) Invoice(inv billing.Invoice, lines []billing.InvoiceLine, clientName string) ([]byte, string, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	r.header(doc, "FACTURE "+inv.InvoiceNumber)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Client: "+clientName, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Periode: %s au %s", inv.PeriodStart, inv.PeriodEnd), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Date d'emission: "+inv.CreatedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(230, 230, 230)
	doc.CellFormat(80, 7, "Description", "1", 0, "L", true, 0, "")
	doc.CellFormat(25, 7, "Quantite", "1", 0, "R", true, 0, "")
	doc.CellFormat(30, 7, "Prix unitaire", "1", 0, "R", true, 0, "")
	doc.CellFormat(25, 7, "Remise", "1", 0, "R", true, 0, "")
	doc.CellFormat(30, 7, "Total", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 9)
	for _, line := range lines {
		doc.CellFormat(80, 7, line.Description, "1", 0, "L", false, 0, "")
		doc.CellFormat(25, 7, fmt.Sprintf("%.2f", line.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(30, 7, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(25, 7, fmt.Sprintf("%.2f", line.Discount), "1", 0, "R", false, 0, "")
		doc.CellFormat(30, 7, fmt.Sprintf("%.2f", line.Total), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	currency := inv.Currency
	if currency == "" {
		currency = "USD"
	}
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(160, 6, "Sous-total", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, fmt.Sprintf("%.2f %s", inv.Subtotal, currency), "", 1, "R", false, 0, "")
	doc.CellFormat(160, 6, "TVA", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, fmt.Sprintf("%.2f %s", inv.TaxAmount, currency), "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(160, 8, "Total a payer", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 8, fmt.Sprintf("%.2f %s", inv.Total, currency), "", 1, "R", false, 0, "")

	data, err := output(doc)
	if err != nil {
		return nil, "", err
	}
	return data, InvoiceFilename(inv.InvoiceNumber), nil
}

// Receipt renders a confirmed payment receipt: receipts/<reference>.pdf.
func (r *Renderer) Receipt(payment billing.Payment, inv billing.Invoice, clientName string) ([]byte, string, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	r.header(doc, "RECU DE PAIEMENT "+payment.Reference)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Client: "+clientName, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Facture: "+inv.InvoiceNumber, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Date de paiement: "+payment.PaymentDate, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Mode de paiement: "+methodLabel(payment), "", 1, "L", false, 0, "")
	if payment.TransactionID != "" {
		doc.CellFormat(0, 6, "Transaction: "+payment.TransactionID, "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 10, fmt.Sprintf("Montant recu: %.2f USD", payment.Amount), "1", 1, "C", false, 0, "")

	data, err := output(doc)
	if err != nil {
		return nil, "", err
	}
	return data, ReceiptFilename(payment.Reference), nil
}

// Payslip renders a monthly payroll document:
// payrolls/<employee_number>_<YYYYMM>.pdf.
func (r *Renderer) Payslip(payroll hr.Payroll, employee hr.Employee) ([]byte, string, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	r.header(doc, "BULLETIN DE PAIE - "+payroll.Month)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, fmt.Sprintf("Employe: %s %s (%s)", employee.FirstName, employee.LastName, employee.EmployeeNumber), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Poste: "+employee.Position, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Departement: "+employee.Department, "", 1, "L", false, 0, "")
	doc.Ln(4)

	rows := []struct {
		label  string
		amount float64
	}{
		{"Salaire de base", payroll.BaseSalary},
		{"Primes", payroll.Bonuses},
		{"Retenues", -payroll.Deductions},
	}
	doc.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		doc.CellFormat(130, 7, row.label, "1", 0, "L", false, 0, "")
		doc.CellFormat(60, 7, fmt.Sprintf("%.2f USD", row.amount), "1", 1, "R", false, 0, "")
	}
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(130, 8, "Net a payer", "1", 0, "L", false, 0, "")
	doc.CellFormat(60, 8, fmt.Sprintf("%.2f USD", payroll.NetSalary), "1", 1, "R", false, 0, "")

	data, err := output(doc)
	if err != nil {
		return nil, "", err
	}
	return data, PayslipFilename(employee.EmployeeNumber, payroll.Month), nil
}

func (r *Renderer) header(doc *gofpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 8, r.CompanyName, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, r.CompanyCity, "", 1, "L", false, 0, "")
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	doc.Ln(2)
}

func methodLabel(payment billing.Payment) string {
	if payment.Method == billing.MethodMobileMoney && payment.MobileOperator != "" {
		return "mobile_money (" + payment.MobileOperator + ")"
	}
	return payment.Method
}

func output(doc *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// InvoiceFilename is the document-root-relative path for an invoice PDF.
func InvoiceFilename(invoiceNumber string) string {
	return "invoices/" + invoiceNumber + ".pdf"
}

// ReceiptFilename is the document-root-relative path for a receipt PDF.
func ReceiptFilename(reference string) string {
	return "receipts/" + reference + ".pdf"
}

// PayslipFilename is the document-root-relative path for a payslip PDF. The
// month is stored as YYYY-MM and flattened to YYYYMM in the filename.
func PayslipFilename(employeeNumber, month string) string {
	return "payrolls/" + employeeNumber + "_" + strings.ReplaceAll(month, "-", "") + ".pdf"
}
