package hr

import "time"

const (
	ContractCDD        = "cdd"
	ContractCDI        = "cdi"
	ContractConsultant = "consultant"
	ContractIntern     = "stage"

	EmployeeActive    = "actif"
	EmployeeSuspended = "suspendu"
	EmployeeLeft      = "sorti"
	EmployeeOnLeave   = "conge"
)

type Employee struct {
	EmployeeID     string    `json:"employee_id"`
	UserID         string    `json:"user_id"`
	AgencyID       string    `json:"agency_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	EmployeeNumber string    `json:"employee_number"`
	Position       string    `json:"position"`
	Department     string    `json:"department"`
	ContractType   string    `json:"contract_type"`
	HireDate       string    `json:"hire_date"`
	Status         string    `json:"status"`
	BaseSalary     *float64  `json:"base_salary,omitempty"`
	KeyStaff       bool      `json:"key_staff"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	LeaveRequested = "demande"
	LeaveApproved  = "approuve"
	LeaveRejected  = "rejete"
)

type LeaveType struct {
	LeaveTypeID string `json:"leave_type_id"`
	Name        string `json:"name"`
	DaysPerYear int    `json:"days_per_year"`
}

type Leave struct {
	LeaveID     string    `json:"leave_id"`
	EmployeeID  string    `json:"employee_id"`
	LeaveTypeID string    `json:"leave_type_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Reason      string    `json:"reason,omitempty"`
	Status      string    `json:"status"`
	ApprovedBy  *string   `json:"approved_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "retard"
	AttendanceOnLeave = "conge"
)

type Attendance struct {
	AttendanceID string  `json:"attendance_id"`
	EmployeeID   string  `json:"employee_id"`
	Date         string  `json:"date"`
	CheckIn      *string `json:"check_in,omitempty"`
	CheckOut     *string `json:"check_out,omitempty"`
	Status       string  `json:"status"`
	Notes        string  `json:"notes,omitempty"`
}

type Payroll struct {
	PayrollID  string    `json:"payroll_id"`
	EmployeeID string    `json:"employee_id"`
	Month      string    `json:"month"`
	BaseSalary float64   `json:"base_salary"`
	Bonuses    float64   `json:"bonuses"`
	Deductions float64   `json:"deductions"`
	NetSalary  float64   `json:"net_salary"`
	PDFPath    string    `json:"pdf_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	BadgeActive    = "actif"
	BadgeSuspended = "suspendu"
	BadgeLost      = "perdu"
	BadgeCancelled = "annule"
)

type Badge struct {
	BadgeID            string     `json:"badge_id"`
	EmployeeID         string     `json:"employee_id"`
	BadgeCode          string     `json:"badge_code"`
	Secret             string     `json:"-"`
	Status             string     `json:"status"`
	IssuedDate         string     `json:"issued_date"`
	ExpiryDate         *string    `json:"expiry_date,omitempty"`
	AllAgencies        bool       `json:"can_access_all_agencies"`
	CanActivateMonitor bool       `json:"can_activate_monitor"`
	CanUseKiosk        bool       `json:"can_use_kiosk"`
	LastScanAt         *time.Time `json:"last_scan_at,omitempty"`
	LastScanAgencyID   *string    `json:"last_scan_agency_id,omitempty"`
	ScanCount          int        `json:"scan_count"`
}

const (
	ScanPresence = "presence"
	ScanMonitor  = "monitor"
	ScanKiosk    = "kiosk"
	ScanDoor     = "door"

	ScanResultSuccess = "success"
	ScanResultInvalid = "invalid"
	ScanResultExpired = "expired"
	ScanResultDenied  = "denied"
)

type ScanLog struct {
	ScanID     string    `json:"scan_id"`
	BadgeID    string    `json:"badge_id"`
	AgencyID   string    `json:"agency_id"`
	ScanType   string    `json:"scan_type"`
	Result     string    `json:"result"`
	IPAddress  string    `json:"ip_address,omitempty"`
	DeviceInfo string    `json:"device_info,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
