package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/operations"
)

type createEquipmentRequest struct {
	SiteID           string `json:"site_id"`
	EquipmentType    string `json:"equipment_type"`
	SerialNumber     string `json:"serial_number"`
	Reference        string `json:"reference"`
	InstallationDate string `json:"installation_date"`
}

type createMeterRequest struct {
	EquipmentID string `json:"equipment_id"`
	MeterNumber string `json:"meter_number"`
}

type createReadingRequest struct {
	ReadingDate  string  `json:"reading_date"`
	ReadingValue float64 `json:"reading_value"`
	Notes        string  `json:"notes"`
}

type createInterventionRequest struct {
	SiteID           string `json:"site_id"`
	InterventionType string `json:"intervention_type"`
	Description      string `json:"description"`
	ScheduledDate    string `json:"scheduled_date"`
	AssignedTo       string `json:"assigned_to"`
}

type interventionStatusRequest struct {
	Status        string `json:"status"`
	CompletedDate string `json:"completed_date"`
}

func (h *Handler) handleEquipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		siteID := queryParam(r, "site_id")
		if siteID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "site_id is required")
			return
		}
		equipment, err := h.Operations.ListEquipment(r.Context(), siteID)
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, equipment)
	case http.MethodPost:
		if !h.can(w, r, principal, "operations", "manage") {
			return
		}
		var req createEquipmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.SiteID = strings.TrimSpace(req.SiteID)
		req.SerialNumber = strings.TrimSpace(req.SerialNumber)
		if req.SiteID == "" || req.SerialNumber == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "site_id and serial_number are required")
			return
		}
		switch req.EquipmentType {
		case operations.EquipmentMeter, operations.EquipmentTransformer, operations.EquipmentBreaker, operations.EquipmentOther:
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown equipment type")
			return
		}
		equipment, err := h.Operations.CreateEquipment(r.Context(), operations.CreateEquipmentInput{
			SiteID:           req.SiteID,
			EquipmentType:    req.EquipmentType,
			SerialNumber:     req.SerialNumber,
			Reference:        req.Reference,
			InstallationDate: req.InstallationDate,
		})
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, equipment)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleEquipmentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	equipmentID, action, ok := pathAction(r.URL.Path, "/api/equipment/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, authed := requireStaff(w, r); !authed {
		return
	}
	equipment, err := h.Operations.GetEquipment(r.Context(), equipmentID)
	if err != nil {
		status, code, msg := mapOperationsError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, equipment)
}

func (h *Handler) handleMeters(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		siteID := queryParam(r, "site_id")
		if siteID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "site_id is required")
			return
		}
		var serviceActive *bool
		if raw := queryParam(r, "service_active"); raw != "" {
			value := raw == "true"
			serviceActive = &value
		}
		meters, err := h.Operations.ListMetersBySite(r.Context(), siteID, serviceActive)
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, meters)
	case http.MethodPost:
		if !h.can(w, r, principal, "operations", "manage") {
			return
		}
		var req createMeterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.EquipmentID = strings.TrimSpace(req.EquipmentID)
		req.MeterNumber = strings.TrimSpace(req.MeterNumber)
		if req.EquipmentID == "" || req.MeterNumber == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "equipment_id and meter_number are required")
			return
		}
		meter, err := h.Operations.CreateMeter(r.Context(), operations.CreateMeterInput{
			EquipmentID: req.EquipmentID,
			MeterNumber: req.MeterNumber,
		})
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, meter)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleMeterActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/meters/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	meterID := parts[0]
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		meter, err := h.Operations.GetMeter(r.Context(), meterID)
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, meter)
	case len(parts) == 2 && parts[1] == "readings":
		h.handleReadings(w, r, meterID)
	case len(parts) == 3 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !h.can(w, r, principal, "operations", "manage") {
			return
		}
		var meter operations.Meter
		var err error
		switch parts[2] {
		case "deactivate":
			meter, err = h.Operations.DeactivateService(r.Context(), meterID)
		case "activate":
			meter, err = h.Operations.ActivateService(r.Context(), meterID)
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, meter)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleReadings(w http.ResponseWriter, r *http.Request, meterID string) {
	switch r.Method {
	case http.MethodGet:
		readings, err := h.Operations.ListReadings(r.Context(), meterID)
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, readings)
	case http.MethodPost:
		var req createReadingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ReadingDate == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "reading_date is required")
			return
		}
		if req.ReadingValue < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "reading_value must be non-negative")
			return
		}
		reading, err := h.Operations.CreateReading(r.Context(), operations.CreateReadingInput{
			MeterID:      meterID,
			ReadingDate:  req.ReadingDate,
			ReadingValue: req.ReadingValue,
			Notes:        req.Notes,
		})
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, reading)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleInterventions(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		interventions, err := h.Operations.ListInterventions(r.Context(), queryParam(r, "site_id"), queryParam(r, "status"))
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, interventions)
	case http.MethodPost:
		if !h.can(w, r, principal, "operations", "manage") {
			return
		}
		var req createInterventionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.SiteID = strings.TrimSpace(req.SiteID)
		if req.SiteID == "" || req.ScheduledDate == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "site_id and scheduled_date are required")
			return
		}
		switch req.InterventionType {
		case operations.InterventionMaintenance, operations.InterventionRepair, operations.InterventionInstallation, operations.InterventionInspection:
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown intervention type")
			return
		}
		intervention, err := h.Operations.CreateIntervention(r.Context(), operations.CreateInterventionInput{
			SiteID:           req.SiteID,
			InterventionType: req.InterventionType,
			Description:      req.Description,
			ScheduledDate:    req.ScheduledDate,
			AssignedTo:       req.AssignedTo,
		})
		if err != nil {
			status, code, msg := mapOperationsError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, intervention)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleInterventionActions(w http.ResponseWriter, r *http.Request) {
	interventionID, action, ok := pathAction(r.URL.Path, "/api/interventions/")
	if !ok || action != "status" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, authed := requireStaff(w, r); !authed {
		return
	}
	var req interventionStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Status {
	case operations.InterventionPlanned, operations.InterventionOngoing, operations.InterventionCompleted, operations.InterventionCancelled:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown status")
		return
	}
	intervention, err := h.Operations.UpdateInterventionStatus(r.Context(), interventionID, req.Status, req.CompletedDate)
	if err != nil {
		status, code, msg := mapOperationsError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, intervention)
}

func mapOperationsError(err error) (int, string, string) {
	switch {
	case errors.Is(err, operations.ErrEquipmentNotFound):
		return http.StatusNotFound, "equipment_not_found", "equipment not found"
	case errors.Is(err, operations.ErrMeterNotFound):
		return http.StatusNotFound, "meter_not_found", "meter not found"
	case errors.Is(err, operations.ErrInterventionNotFound):
		return http.StatusNotFound, "intervention_not_found", "intervention not found"
	case errors.Is(err, operations.ErrDuplicateSerial):
		return http.StatusConflict, "duplicate_serial", "serial number already registered"
	case errors.Is(err, operations.ErrDuplicateReading):
		return http.StatusConflict, "duplicate_reading", "reading already recorded for this date"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
