package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
)

func TestFilenames(t *testing.T) {
	if got := InvoiceFilename("INV-2026-0042"); got != "invoices/INV-2026-0042.pdf" {
		t.Fatalf("invoice filename: %s", got)
	}
	if got := ReceiptFilename("PAY-2026-0007"); got != "receipts/PAY-2026-0007.pdf" {
		t.Fatalf("receipt filename: %s", got)
	}
	if got := PayslipFilename("EMP-0012", "2026-08"); got != "payrolls/EMP-0012_202608.pdf" {
		t.Fatalf("payslip filename: %s", got)
	}
}

func TestInvoiceRenders(t *testing.T) {
	r := NewRenderer()
	inv := billing.Invoice{
		InvoiceNumber: "INV-2026-0001",
		PeriodStart:   "2026-07-01",
		PeriodEnd:     "2026-07-31",
		Currency:      "USD",
		Subtotal:      100,
		TaxAmount:     16,
		Total:         116,
		CreatedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	lines := []billing.InvoiceLine{
		{Description: "Consommation 120 kWh", Quantity: 120, UnitPrice: 0.8, Discount: 0, Total: 96},
		{Description: "Frais fixes", Quantity: 1, UnitPrice: 4, Discount: 0, Total: 4},
	}
	data, name, err := r.Invoice(inv, lines, "SARL Kivu")
	if err != nil {
		t.Fatal(err)
	}
	if name != "invoices/INV-2026-0001.pdf" {
		t.Fatalf("unexpected filename %s", name)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF document")
	}
}

func TestPayslipRenders(t *testing.T) {
	r := NewRenderer()
	payroll := hr.Payroll{Month: "2026-08", BaseSalary: 900, Bonuses: 50, Deductions: 120, NetSalary: 830}
	employee := hr.Employee{FirstName: "Alice", LastName: "Mwamba", EmployeeNumber: "EMP-0003", Position: "caissier", Department: "comptabilite"}
	data, name, err := r.Payslip(payroll, employee)
	if err != nil {
		t.Fatal(err)
	}
	if name != "payrolls/EMP-0003_202608.pdf" {
		t.Fatalf("unexpected filename %s", name)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF document")
	}
}

func TestDiskStoreSave(t *testing.T) {
	root := t.TempDir()
	store := NewDiskStore(root)

	rel, err := store.Save("invoices/INV-2026-0001.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatal(err)
	}
	if rel != "invoices/INV-2026-0001.pdf" {
		t.Fatalf("unexpected relative path %s", rel)
	}
	if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	if _, err := store.Open(rel); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Save("../escape.pdf", nil); err == nil {
		t.Fatal("expected error for path escaping the root")
	}
}
