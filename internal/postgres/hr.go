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

	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
)

// lateCutoff is the check-in time after which attendance is recorded as
// retard instead of present.
const lateCutoff = "09:00"

type HRStore struct {
	pool *pgxpool.Pool
}

func NewHRStore(pool *pgxpool.Pool) *HRStore {
	return &HRStore{pool: pool}
}

const employeeColumns = `employee_id, user_id, agency_id, first_name, last_name, employee_number, position,
	department, contract_type, hire_date, status, base_salary, key_staff, created_at`

const badgeColumns = `badge_id, employee_id, badge_code, secret, status, issued_date, expiry_date,
	can_access_all_agencies, can_activate_monitor, can_use_kiosk, last_scan_at, last_scan_agency_id, scan_count`

func (s *HRStore) CreateEmployee(ctx context.Context, input hr.CreateEmployeeInput) (hr.Employee, error) {
	employeeID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO employees (
			employee_id, user_id, agency_id, first_name, last_name, employee_number, position,
			department, contract_type, hire_date, status, base_salary, key_staff, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
		RETURNING `+employeeColumns+`
	`, employeeID, input.UserID, nullIfEmpty(input.AgencyID), input.FirstName, input.LastName, input.EmployeeNumber,
		input.Position, input.Department, input.ContractType, input.HireDate, hr.EmployeeActive,
		input.BaseSalary, input.KeyStaff)
	employee, err := scanEmployee(row)
	if err != nil {
		if isUniqueViolation(err) {
			return hr.Employee{}, hr.ErrDuplicateNumber
		}
		return hr.Employee{}, err
	}
	return employee, nil
}

func (s *HRStore) GetEmployee(ctx context.Context, employeeID string) (hr.Employee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE employee_id = $1
	`, employeeID)
	employee, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Employee{}, hr.ErrEmployeeNotFound
		}
		return hr.Employee{}, err
	}
	return employee, nil
}

func (s *HRStore) GetEmployeeByUser(ctx context.Context, userID string) (hr.Employee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE user_id = $1
	`, userID)
	employee, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Employee{}, hr.ErrEmployeeNotFound
		}
		return hr.Employee{}, err
	}
	return employee, nil
}

func (s *HRStore) ListEmployees(ctx context.Context, agencyID, status string) ([]hr.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE 1=1
	`
	var args []interface{}
	if agencyID != "" {
		args = append(args, agencyID)
		query += fmt.Sprintf(" AND agency_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY employee_number ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []hr.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

// IssueBadge creates the single badge for an employee. The code is derived
// from the employee id and the secret is fresh random material; kiosk and
// monitor capabilities start off.
func (s *HRStore) IssueBadge(ctx context.Context, employeeID string, expiryDate string) (hr.Badge, error) {
	badgeID := uuid.NewString()
	code := hr.NewBadgeCode(employeeID)
	secret := hr.NewBadgeSecret()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO badges (
			badge_id, employee_id, badge_code, secret, status, issued_date, expiry_date,
			can_access_all_agencies, can_activate_monitor, can_use_kiosk, scan_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,FALSE,FALSE,0)
		RETURNING `+badgeColumns+`
	`, badgeID, employeeID, code, secret, hr.BadgeActive, time.Now().UTC().Format("2006-01-02"), nullIfEmpty(expiryDate))
	badge, err := scanBadge(row)
	if err != nil {
		if isUniqueViolation(err) {
			return hr.Badge{}, hr.ErrBadgeAlreadyIssued
		}
		return hr.Badge{}, err
	}
	return badge, nil
}

func (s *HRStore) GetBadgeByCode(ctx context.Context, badgeCode string) (hr.Badge, hr.Employee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT b.badge_id, b.employee_id, b.badge_code, b.secret, b.status, b.issued_date, b.expiry_date,
		       b.can_access_all_agencies, b.can_activate_monitor, b.can_use_kiosk, b.last_scan_at, b.last_scan_agency_id, b.scan_count,
		       e.employee_id, e.user_id, e.agency_id, e.first_name, e.last_name, e.employee_number, e.position,
		       e.department, e.contract_type, e.hire_date, e.status, e.base_salary, e.key_staff, e.created_at
		FROM badges b
		JOIN employees e ON e.employee_id = b.employee_id
		WHERE b.badge_code = $1
	`, badgeCode)

	var badge hr.Badge
	var employee hr.Employee
	var expiryDate, lastScanAgency sql.NullString
	var lastScanAt sql.NullTime
	var empAgency sql.NullString
	var baseSalary sql.NullFloat64
	if err := row.Scan(&badge.BadgeID, &badge.EmployeeID, &badge.BadgeCode, &badge.Secret, &badge.Status,
		&badge.IssuedDate, &expiryDate, &badge.AllAgencies, &badge.CanActivateMonitor, &badge.CanUseKiosk,
		&lastScanAt, &lastScanAgency, &badge.ScanCount,
		&employee.EmployeeID, &employee.UserID, &empAgency, &employee.FirstName, &employee.LastName,
		&employee.EmployeeNumber, &employee.Position, &employee.Department, &employee.ContractType,
		&employee.HireDate, &employee.Status, &baseSalary, &employee.KeyStaff, &employee.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Badge{}, hr.Employee{}, hr.ErrBadgeNotFound
		}
		return hr.Badge{}, hr.Employee{}, err
	}
	badge.ExpiryDate = nullStringPtr(expiryDate)
	badge.LastScanAt = nullTimePtr(lastScanAt)
	badge.LastScanAgencyID = nullStringPtr(lastScanAgency)
	employee.AgencyID = nullString(empAgency)
	employee.BaseSalary = nullFloatPtr(baseSalary)
	return badge, employee, nil
}

func (s *HRStore) RegenerateBadgeSecret(ctx context.Context, badgeID string) (hr.Badge, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE badges
		SET secret = $2
		WHERE badge_id = $1
		RETURNING `+badgeColumns+`
	`, badgeID, hr.NewBadgeSecret())
	badge, err := scanBadge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Badge{}, hr.ErrBadgeNotFound
		}
		return hr.Badge{}, err
	}
	return badge, nil
}

func (s *HRStore) UpdateBadgeStatus(ctx context.Context, badgeID, status string) (hr.Badge, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE badges
		SET status = $2
		WHERE badge_id = $1
		RETURNING `+badgeColumns+`
	`, badgeID, status)
	badge, err := scanBadge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Badge{}, hr.ErrBadgeNotFound
		}
		return hr.Badge{}, err
	}
	return badge, nil
}

// RecordScan logs every scan attempt, success or not, and bumps the badge
// counters only on success.
func (s *HRStore) RecordScan(ctx context.Context, input hr.RecordScanInput) error {
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO badge_scan_logs (scan_id, badge_id, agency_id, scan_type, result, ip_address, device_info, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, uuid.NewString(), input.BadgeID, input.AgencyID, input.ScanType, input.Result,
		nullIfEmpty(input.IPAddress), nullIfEmpty(input.DeviceInfo), nullIfEmpty(input.Notes), at)
	if err != nil {
		return err
	}
	if input.Result != hr.ScanResultSuccess {
		return nil
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE badges
		SET scan_count = scan_count + 1, last_scan_at = $2, last_scan_agency_id = $3
		WHERE badge_id = $1
	`, input.BadgeID, at, input.AgencyID)
	return err
}

func (s *HRStore) ListScanLogs(ctx context.Context, badgeID string, limit int) ([]hr.ScanLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT scan_id, badge_id, agency_id, scan_type, result, ip_address, device_info, notes, created_at
		FROM badge_scan_logs
		WHERE badge_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, badgeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []hr.ScanLog
	for rows.Next() {
		var entry hr.ScanLog
		var ip, device, notes sql.NullString
		if err := rows.Scan(&entry.ScanID, &entry.BadgeID, &entry.AgencyID, &entry.ScanType, &entry.Result,
			&ip, &device, &notes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.IPAddress = nullString(ip)
		entry.DeviceInfo = nullString(device)
		entry.Notes = nullString(notes)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// RecordPresence toggles today's attendance row: the first scan of the day
// checks in (after the cutoff as retard), the second checks out. Further
// scans only move the check-out time.
func (s *HRStore) RecordPresence(ctx context.Context, employeeID string, at time.Time) (hr.PresenceResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return hr.PresenceResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if at.IsZero() {
		at = time.Now().UTC()
	}
	date := at.Format("2006-01-02")
	clock := at.Format("15:04")

	var attendance hr.Attendance
	var checkIn, checkOut, notes sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT attendance_id, employee_id, date, check_in, check_out, status, notes
		FROM attendance
		WHERE employee_id = $1 AND date = $2
		FOR UPDATE
	`, employeeID, date)
	err = row.Scan(&attendance.AttendanceID, &attendance.EmployeeID, &attendance.Date, &checkIn, &checkOut, &attendance.Status, &notes)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		status := hr.AttendancePresent
		if clock > lateCutoff {
			status = hr.AttendanceLate
		}
		row = tx.QueryRow(ctx, `
			INSERT INTO attendance (attendance_id, employee_id, date, check_in, status)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING attendance_id, employee_id, date, check_in, check_out, status, notes
		`, uuid.NewString(), employeeID, date, clock, status)
		if err = row.Scan(&attendance.AttendanceID, &attendance.EmployeeID, &attendance.Date, &checkIn, &checkOut, &attendance.Status, &notes); err != nil {
			return hr.PresenceResult{}, err
		}
		attendance.CheckIn = nullStringPtr(checkIn)
		attendance.CheckOut = nullStringPtr(checkOut)
		attendance.Notes = nullString(notes)
		if err = tx.Commit(ctx); err != nil {
			return hr.PresenceResult{}, err
		}
		return hr.PresenceResult{Attendance: attendance}, nil
	case err != nil:
		return hr.PresenceResult{}, err
	}

	row = tx.QueryRow(ctx, `
		UPDATE attendance
		SET check_out = $3
		WHERE employee_id = $1 AND date = $2
		RETURNING attendance_id, employee_id, date, check_in, check_out, status, notes
	`, employeeID, date, clock)
	if err = row.Scan(&attendance.AttendanceID, &attendance.EmployeeID, &attendance.Date, &checkIn, &checkOut, &attendance.Status, &notes); err != nil {
		return hr.PresenceResult{}, err
	}
	attendance.CheckIn = nullStringPtr(checkIn)
	attendance.CheckOut = nullStringPtr(checkOut)
	attendance.Notes = nullString(notes)
	if err = tx.Commit(ctx); err != nil {
		return hr.PresenceResult{}, err
	}
	return hr.PresenceResult{Attendance: attendance, CheckedOut: true}, nil
}

func (s *HRStore) ListAttendance(ctx context.Context, employeeID string, from, to string) ([]hr.Attendance, error) {
	query := `
		SELECT attendance_id, employee_id, date, check_in, check_out, status, notes
		FROM attendance
		WHERE employee_id = $1
	`
	args := []interface{}{employeeID}
	if from != "" {
		args = append(args, from)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if to != "" {
		args = append(args, to)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []hr.Attendance
	for rows.Next() {
		var attendance hr.Attendance
		var checkIn, checkOut, notes sql.NullString
		if err := rows.Scan(&attendance.AttendanceID, &attendance.EmployeeID, &attendance.Date, &checkIn, &checkOut, &attendance.Status, &notes); err != nil {
			return nil, err
		}
		attendance.CheckIn = nullStringPtr(checkIn)
		attendance.CheckOut = nullStringPtr(checkOut)
		attendance.Notes = nullString(notes)
		entries = append(entries, attendance)
	}
	return entries, rows.Err()
}

func (s *HRStore) CreateLeave(ctx context.Context, input hr.CreateLeaveInput) (hr.Leave, error) {
	leaveID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO leaves (leave_id, employee_id, leave_type_id, start_date, end_date, reason, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING leave_id, employee_id, leave_type_id, start_date, end_date, reason, status, approved_by, created_at
	`, leaveID, input.EmployeeID, input.LeaveTypeID, input.StartDate, input.EndDate, nullIfEmpty(input.Reason), hr.LeaveRequested)
	return scanLeave(row)
}

func (s *HRStore) ApproveLeave(ctx context.Context, leaveID, approverID string, approve bool) (hr.Leave, error) {
	status := hr.LeaveApproved
	if !approve {
		status = hr.LeaveRejected
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE leaves
		SET status = $2, approved_by = $3
		WHERE leave_id = $1 AND status = 'demande'
		RETURNING leave_id, employee_id, leave_type_id, start_date, end_date, reason, status, approved_by, created_at
	`, leaveID, status, approverID)
	leave, err := scanLeave(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Leave{}, hr.ErrLeaveNotFound
		}
		return hr.Leave{}, err
	}
	return leave, nil
}

func (s *HRStore) ListLeaves(ctx context.Context, employeeID, status string) ([]hr.Leave, error) {
	query := `
		SELECT leave_id, employee_id, leave_type_id, start_date, end_date, reason, status, approved_by, created_at
		FROM leaves
		WHERE 1=1
	`
	var args []interface{}
	if employeeID != "" {
		args = append(args, employeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
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

	var leaves []hr.Leave
	for rows.Next() {
		leave, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leave)
	}
	return leaves, rows.Err()
}

func (s *HRStore) ListLeaveTypes(ctx context.Context) ([]hr.LeaveType, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT leave_type_id, name, days_per_year
		FROM leave_types
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []hr.LeaveType
	for rows.Next() {
		var lt hr.LeaveType
		if err := rows.Scan(&lt.LeaveTypeID, &lt.Name, &lt.DaysPerYear); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (s *HRStore) CreatePayroll(ctx context.Context, input hr.CreatePayrollInput) (hr.Payroll, error) {
	payrollID := uuid.NewString()
	net := input.BaseSalary + input.Bonuses - input.Deductions
	row := s.pool.QueryRow(ctx, `
		INSERT INTO payrolls (payroll_id, employee_id, month, base_salary, bonuses, deductions, net_salary, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING payroll_id, employee_id, month, base_salary, bonuses, deductions, net_salary, pdf_path, created_at
	`, payrollID, input.EmployeeID, input.Month, input.BaseSalary, input.Bonuses, input.Deductions, net)
	payroll, err := scanPayroll(row)
	if err != nil {
		if isUniqueViolation(err) {
			return hr.Payroll{}, hr.ErrDuplicatePayroll
		}
		return hr.Payroll{}, err
	}
	return payroll, nil
}

func (s *HRStore) GetPayroll(ctx context.Context, payrollID string) (hr.Payroll, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payroll_id, employee_id, month, base_salary, bonuses, deductions, net_salary, pdf_path, created_at
		FROM payrolls
		WHERE payroll_id = $1
	`, payrollID)
	payroll, err := scanPayroll(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hr.Payroll{}, hr.ErrPayrollNotFound
		}
		return hr.Payroll{}, err
	}
	return payroll, nil
}

func (s *HRStore) ListPayrolls(ctx context.Context, employeeID string) ([]hr.Payroll, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payroll_id, employee_id, month, base_salary, bonuses, deductions, net_salary, pdf_path, created_at
		FROM payrolls
		WHERE employee_id = $1
		ORDER BY month DESC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payrolls []hr.Payroll
	for rows.Next() {
		payroll, err := scanPayroll(rows)
		if err != nil {
			return nil, err
		}
		payrolls = append(payrolls, payroll)
	}
	return payrolls, rows.Err()
}

func (s *HRStore) SetPayrollPDF(ctx context.Context, payrollID, path string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payrolls
		SET pdf_path = $2
		WHERE payroll_id = $1
	`, payrollID, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return hr.ErrPayrollNotFound
	}
	return nil
}

func scanEmployee(row rowScanner) (hr.Employee, error) {
	var employee hr.Employee
	var agencyID sql.NullString
	var baseSalary sql.NullFloat64
	if err := row.Scan(&employee.EmployeeID, &employee.UserID, &agencyID, &employee.FirstName, &employee.LastName,
		&employee.EmployeeNumber, &employee.Position, &employee.Department, &employee.ContractType,
		&employee.HireDate, &employee.Status, &baseSalary, &employee.KeyStaff, &employee.CreatedAt); err != nil {
		return hr.Employee{}, err
	}
	employee.AgencyID = nullString(agencyID)
	employee.BaseSalary = nullFloatPtr(baseSalary)
	return employee, nil
}

func scanBadge(row rowScanner) (hr.Badge, error) {
	var badge hr.Badge
	var expiryDate, lastScanAgency sql.NullString
	var lastScanAt sql.NullTime
	if err := row.Scan(&badge.BadgeID, &badge.EmployeeID, &badge.BadgeCode, &badge.Secret, &badge.Status,
		&badge.IssuedDate, &expiryDate, &badge.AllAgencies, &badge.CanActivateMonitor, &badge.CanUseKiosk,
		&lastScanAt, &lastScanAgency, &badge.ScanCount); err != nil {
		return hr.Badge{}, err
	}
	badge.ExpiryDate = nullStringPtr(expiryDate)
	badge.LastScanAt = nullTimePtr(lastScanAt)
	badge.LastScanAgencyID = nullStringPtr(lastScanAgency)
	return badge, nil
}

func scanLeave(row rowScanner) (hr.Leave, error) {
	var leave hr.Leave
	var reason, approvedBy sql.NullString
	if err := row.Scan(&leave.LeaveID, &leave.EmployeeID, &leave.LeaveTypeID, &leave.StartDate, &leave.EndDate,
		&reason, &leave.Status, &approvedBy, &leave.CreatedAt); err != nil {
		return hr.Leave{}, err
	}
	leave.Reason = nullString(reason)
	leave.ApprovedBy = nullStringPtr(approvedBy)
	return leave, nil
}

func scanPayroll(row rowScanner) (hr.Payroll, error) {
	var payroll hr.Payroll
	var pdfPath sql.NullString
	if err := row.Scan(&payroll.PayrollID, &payroll.EmployeeID, &payroll.Month, &payroll.BaseSalary,
		&payroll.Bonuses, &payroll.Deductions, &payroll.NetSalary, &pdfPath, &payroll.CreatedAt); err != nil {
		return hr.Payroll{}, err
	}
	payroll.PDFPath = nullString(pdfPath)
	return payroll, nil
}
