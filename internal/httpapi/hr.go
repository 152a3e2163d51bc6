package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/jobs"
)

type createEmployeeRequest struct {
	UserID         string   `json:"user_id"`
	AgencyID       string   `json:"agency_id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	EmployeeNumber string   `json:"employee_number"`
	Position       string   `json:"position"`
	Department     string   `json:"department"`
	ContractType   string   `json:"contract_type"`
	HireDate       string   `json:"hire_date"`
	BaseSalary     *float64 `json:"base_salary"`
	KeyStaff       bool     `json:"key_staff"`
}

type issueBadgeRequest struct {
	EmployeeID string `json:"employee_id"`
	ExpiryDate string `json:"expiry_date"`
}

// issuedBadge carries the secret exactly once, at issue or regeneration
// time, for provisioning the physical badge.
type issuedBadge struct {
	Badge  hr.Badge `json:"badge"`
	Secret string   `json:"secret"`
}

type badgeStatusRequest struct {
	Status string `json:"status"`
}

type badgeScanRequest struct {
	BadgeCode  string `json:"badge_code"`
	Signature  string `json:"signature"`
	ScanType   string `json:"scan_type"`
	AgencyID   string `json:"agency_id"`
	DeviceInfo string `json:"device_info"`
}

type badgeScanResponse struct {
	Result       string             `json:"result"`
	EmployeeName string             `json:"employee_name,omitempty"`
	Capabilities []string           `json:"capabilities,omitempty"`
	Presence     *hr.PresenceResult `json:"presence,omitempty"`
}

type createLeaveRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason"`
}

type approveLeaveRequest struct {
	Approve bool `json:"approve"`
}

type createPayrollRequest struct {
	EmployeeID string  `json:"employee_id"`
	Month      string  `json:"month"`
	BaseSalary float64 `json:"base_salary"`
	Bonuses    float64 `json:"bonuses"`
	Deductions float64 `json:"deductions"`
}

func (h *Handler) handleEmployees(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		employees, err := h.HR.ListEmployees(r.Context(), queryParam(r, "agency_id"), queryParam(r, "status"))
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, employees)
	case http.MethodPost:
		if !h.can(w, r, principal, "hr", "manage") {
			return
		}
		var req createEmployeeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		req.EmployeeNumber = strings.TrimSpace(req.EmployeeNumber)
		if req.UserID == "" || req.FirstName == "" || req.LastName == "" || req.EmployeeNumber == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "user_id, first_name, last_name, and employee_number are required")
			return
		}
		switch req.ContractType {
		case hr.ContractCDD, hr.ContractCDI, hr.ContractConsultant, hr.ContractIntern:
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown contract type")
			return
		}
		employee, err := h.HR.CreateEmployee(r.Context(), hr.CreateEmployeeInput{
			UserID:         req.UserID,
			AgencyID:       req.AgencyID,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			EmployeeNumber: req.EmployeeNumber,
			Position:       req.Position,
			Department:     req.Department,
			ContractType:   req.ContractType,
			HireDate:       req.HireDate,
			BaseSalary:     req.BaseSalary,
			KeyStaff:       req.KeyStaff,
		})
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, employee)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleEmployeeActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/employees/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	employeeID := parts[0]
	if _, ok := requireStaff(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch {
	case len(parts) == 1:
		employee, err := h.HR.GetEmployee(r.Context(), employeeID)
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, employee)
	case parts[1] == "attendance":
		entries, err := h.HR.ListAttendance(r.Context(), employeeID, queryParam(r, "from"), queryParam(r, "to"))
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case parts[1] == "capabilities":
		employee, err := h.HR.GetEmployee(r.Context(), employeeID)
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, hr.CapabilityList(employee.Position, employee.Department))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleBadges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	if !h.can(w, r, principal, "hr", "manage") {
		return
	}
	var req issueBadgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "employee_id is required")
		return
	}
	badge, err := h.HR.IssueBadge(r.Context(), req.EmployeeID, req.ExpiryDate)
	if err != nil {
		status, code, msg := mapHRError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, issuedBadge{Badge: badge, Secret: badge.Secret})
}

func (h *Handler) handleBadgeActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/badges/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	badgeID := parts[0]
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "scans":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		limit := 50
		logs, err := h.HR.ListScanLogs(r.Context(), badgeID, limit)
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	case len(parts) == 3 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !h.can(w, r, principal, "hr", "manage") {
			return
		}
		switch parts[2] {
		case "regenerate":
			badge, err := h.HR.RegenerateBadgeSecret(r.Context(), badgeID)
			if err != nil {
				status, code, msg := mapHRError(err)
				writeError(w, status, code, msg)
				return
			}
			writeJSON(w, http.StatusOK, issuedBadge{Badge: badge, Secret: badge.Secret})
		case "status":
			var req badgeStatusRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			switch req.Status {
			case hr.BadgeActive, hr.BadgeSuspended, hr.BadgeLost, hr.BadgeCancelled:
			default:
				writeError(w, http.StatusBadRequest, "invalid_request", "unknown badge status")
				return
			}
			badge, err := h.HR.UpdateBadgeStatus(r.Context(), badgeID, req.Status)
			if err != nil {
				status, code, msg := mapHRError(err)
				writeError(w, status, code, msg)
				return
			}
			writeJSON(w, http.StatusOK, badge)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleBadgeScan is the device endpoint. Checks run in a fixed order
// (signature, validity, agency scope, scan type) and every refusal is logged
// with its result code before the response goes out.
func (h *Handler) handleBadgeScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req badgeScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BadgeCode = strings.TrimSpace(req.BadgeCode)
	req.Signature = strings.TrimSpace(req.Signature)
	req.ScanType = strings.TrimSpace(req.ScanType)
	req.AgencyID = strings.TrimSpace(req.AgencyID)
	if req.BadgeCode == "" || req.Signature == "" || req.AgencyID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "badge_code, signature, and agency_id are required")
		return
	}
	switch req.ScanType {
	case hr.ScanPresence, hr.ScanMonitor, hr.ScanKiosk, hr.ScanDoor:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown scan type")
		return
	}

	badge, employee, err := h.HR.GetBadgeByCode(r.Context(), req.BadgeCode)
	if err != nil {
		if errors.Is(err, hr.ErrBadgeNotFound) {
			writeError(w, http.StatusNotFound, "badge_not_found", "badge not found")
			return
		}
		status, code, msg := mapHRError(err)
		writeError(w, status, code, msg)
		return
	}

	recordRefusal := func(result, notes string) {
		scanErr := h.HR.RecordScan(r.Context(), hr.RecordScanInput{
			BadgeID:    badge.BadgeID,
			AgencyID:   req.AgencyID,
			ScanType:   req.ScanType,
			Result:     result,
			IPAddress:  clientIP(r),
			DeviceInfo: req.DeviceInfo,
			Notes:      notes,
			OccurredAt: h.now(),
		})
		if scanErr != nil {
			log.Printf("badge scan log %s: %v", badge.BadgeID, scanErr)
		}
	}

	if !badge.VerifySignature(req.Signature) {
		recordRefusal(hr.ScanResultInvalid, "bad signature")
		writeError(w, http.StatusForbidden, "invalid_signature", "badge signature mismatch")
		return
	}
	if !badge.Valid(h.now()) {
		recordRefusal(hr.ScanResultExpired, "badge not valid")
		writeError(w, http.StatusForbidden, "badge_invalid", "badge is expired or not active")
		return
	}
	if !badge.CanAccessAgency(employee.AgencyID, req.AgencyID) {
		recordRefusal(hr.ScanResultDenied, "agency out of scope")
		writeError(w, http.StatusForbidden, "agency_denied", "badge not valid at this agency")
		return
	}
	if !badge.AllowsScanType(req.ScanType) {
		recordRefusal(hr.ScanResultDenied, "scan type not allowed")
		writeError(w, http.StatusForbidden, "scan_type_denied", "badge does not allow this scan type")
		return
	}

	if err := h.HR.RecordScan(r.Context(), hr.RecordScanInput{
		BadgeID:    badge.BadgeID,
		AgencyID:   req.AgencyID,
		ScanType:   req.ScanType,
		Result:     hr.ScanResultSuccess,
		IPAddress:  clientIP(r),
		DeviceInfo: req.DeviceInfo,
		OccurredAt: h.now(),
	}); err != nil {
		status, code, msg := mapHRError(err)
		writeError(w, status, code, msg)
		return
	}

	response := badgeScanResponse{
		Result:       hr.ScanResultSuccess,
		EmployeeName: employee.FirstName + " " + employee.LastName,
		Capabilities: hr.CapabilityList(employee.Position, employee.Department),
	}
	if req.ScanType == hr.ScanPresence {
		presence, err := h.HR.RecordPresence(r.Context(), employee.EmployeeID, h.now())
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		response.Presence = &presence
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleLeaves(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		leaves, err := h.HR.ListLeaves(r.Context(), queryParam(r, "employee_id"), queryParam(r, "status"))
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, leaves)
	case http.MethodPost:
		var req createLeaveRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.EmployeeID = strings.TrimSpace(req.EmployeeID)
		req.LeaveTypeID = strings.TrimSpace(req.LeaveTypeID)
		if req.EmployeeID == "" || req.LeaveTypeID == "" || req.StartDate == "" || req.EndDate == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "employee_id, leave_type_id, start_date, and end_date are required")
			return
		}
		leave, err := h.HR.CreateLeave(r.Context(), hr.CreateLeaveInput{
			EmployeeID:  req.EmployeeID,
			LeaveTypeID: req.LeaveTypeID,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Reason:      req.Reason,
		})
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, leave)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLeaveActions(w http.ResponseWriter, r *http.Request) {
	leaveID, action, ok := pathAction(r.URL.Path, "/api/leaves/")
	if !ok || action != "approve" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	if !h.can(w, r, principal, "hr", "manage") {
		return
	}
	var req approveLeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	leave, err := h.HR.ApproveLeave(r.Context(), leaveID, principal.UserID, req.Approve)
	if err != nil {
		status, code, msg := mapHRError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, leave)
}

func (h *Handler) handleLeaveTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireStaff(w, r); !ok {
		return
	}
	types, err := h.HR.ListLeaveTypes(r.Context())
	if err != nil {
		status, code, msg := mapHRError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) handlePayrolls(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		employeeID := queryParam(r, "employee_id")
		if employeeID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "employee_id is required")
			return
		}
		payrolls, err := h.HR.ListPayrolls(r.Context(), employeeID)
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, payrolls)
	case http.MethodPost:
		if !h.can(w, r, principal, "hr", "manage") {
			return
		}
		var req createPayrollRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.EmployeeID = strings.TrimSpace(req.EmployeeID)
		req.Month = strings.TrimSpace(req.Month)
		if req.EmployeeID == "" || req.Month == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "employee_id and month are required")
			return
		}
		payroll, err := h.HR.CreatePayroll(r.Context(), hr.CreatePayrollInput{
			EmployeeID: req.EmployeeID,
			Month:      req.Month,
			BaseSalary: req.BaseSalary,
			Bonuses:    req.Bonuses,
			Deductions: req.Deductions,
		})
		if err != nil {
			status, code, msg := mapHRError(err)
			writeError(w, status, code, msg)
			return
		}
		h.enqueue(r.Context(), jobs.NewPayslipPDFTask(payroll.PayrollID))
		writeJSON(w, http.StatusCreated, payroll)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePayrollByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payrollID, action, ok := pathAction(r.URL.Path, "/api/payrolls/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, authed := requireStaff(w, r); !authed {
		return
	}
	payroll, err := h.HR.GetPayroll(r.Context(), payrollID)
	if err != nil {
		status, code, msg := mapHRError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, payroll)
}

func mapHRError(err error) (int, string, string) {
	switch {
	case errors.Is(err, hr.ErrEmployeeNotFound):
		return http.StatusNotFound, "employee_not_found", "employee not found"
	case errors.Is(err, hr.ErrBadgeNotFound):
		return http.StatusNotFound, "badge_not_found", "badge not found"
	case errors.Is(err, hr.ErrLeaveNotFound):
		return http.StatusNotFound, "leave_not_found", "leave request not found or already handled"
	case errors.Is(err, hr.ErrPayrollNotFound):
		return http.StatusNotFound, "payroll_not_found", "payroll not found"
	case errors.Is(err, hr.ErrDuplicateNumber):
		return http.StatusConflict, "duplicate_number", "employee number already used"
	case errors.Is(err, hr.ErrDuplicatePayroll):
		return http.StatusConflict, "duplicate_payroll", "payroll already exists for this month"
	case errors.Is(err, hr.ErrBadgeAlreadyIssued):
		return http.StatusConflict, "badge_already_issued", "employee already has a badge"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
