package hr

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrBadgeNotFound      = errors.New("badge not found")
	ErrLeaveNotFound      = errors.New("leave not found")
	ErrPayrollNotFound    = errors.New("payroll not found")
	ErrDuplicateNumber    = errors.New("duplicate employee number")
	ErrDuplicatePayroll   = errors.New("payroll already exists for month")
	ErrBadgeAlreadyIssued = errors.New("badge already issued")
)

type CreateEmployeeInput struct {
	UserID         string
	AgencyID       string
	FirstName      string
	LastName       string
	EmployeeNumber string
	Position       string
	Department     string
	ContractType   string
	HireDate       string
	BaseSalary     *float64
	KeyStaff       bool
}

type CreateLeaveInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   string
	EndDate     string
	Reason      string
}

type CreatePayrollInput struct {
	EmployeeID string
	Month      string
	BaseSalary float64
	Bonuses    float64
	Deductions float64
}

type RecordScanInput struct {
	BadgeID    string
	AgencyID   string
	ScanType   string
	Result     string
	IPAddress  string
	DeviceInfo string
	Notes      string
	OccurredAt time.Time
}

// PresenceResult reports what a presence scan did to today's attendance row.
type PresenceResult struct {
	Attendance Attendance
	CheckedOut bool
}

type Store interface {
	CreateEmployee(ctx context.Context, input CreateEmployeeInput) (Employee, error)
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	GetEmployeeByUser(ctx context.Context, userID string) (Employee, error)
	ListEmployees(ctx context.Context, agencyID, status string) ([]Employee, error)

	IssueBadge(ctx context.Context, employeeID string, expiryDate string) (Badge, error)
	GetBadgeByCode(ctx context.Context, badgeCode string) (Badge, Employee, error)
	RegenerateBadgeSecret(ctx context.Context, badgeID string) (Badge, error)
	UpdateBadgeStatus(ctx context.Context, badgeID, status string) (Badge, error)
	RecordScan(ctx context.Context, input RecordScanInput) error
	ListScanLogs(ctx context.Context, badgeID string, limit int) ([]ScanLog, error)

	// RecordPresence creates today's attendance row with a check-in, or sets
	// the check-out when a row with a check-in already exists. A check-in
	// after the lateness cutoff is recorded as retard.
	RecordPresence(ctx context.Context, employeeID string, at time.Time) (PresenceResult, error)
	ListAttendance(ctx context.Context, employeeID string, from, to string) ([]Attendance, error)

	CreateLeave(ctx context.Context, input CreateLeaveInput) (Leave, error)
	ApproveLeave(ctx context.Context, leaveID, approverID string, approve bool) (Leave, error)
	ListLeaves(ctx context.Context, employeeID, status string) ([]Leave, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)

	CreatePayroll(ctx context.Context, input CreatePayrollInput) (Payroll, error)
	GetPayroll(ctx context.Context, payrollID string) (Payroll, error)
	ListPayrolls(ctx context.Context, employeeID string) ([]Payroll, error)
	SetPayrollPDF(ctx context.Context, payrollID, path string) error
}
