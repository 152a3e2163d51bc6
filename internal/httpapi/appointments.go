package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/realtime"
)

type createTimeSlotRequest struct {
	AgencyID        string `json:"agency_id"`
	DayOfWeek       int    `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxAppointments int    `json:"max_appointments"`
}

type createAppointmentRequest struct {
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	ClientEmail string `json:"client_email"`
	AgencyID    string `json:"agency_id"`
	ServiceID   string `json:"service_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Notes       string `json:"notes"`
}

type appointmentActionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		principal, ok := requireStaff(w, r)
		if !ok {
			return
		}
		agencyID := queryParam(r, "agency_id")
		if !requireAgency(w, r, principal, agencyID) {
			return
		}
		slots, err := h.Appointments.ListTimeSlots(r.Context(), agencyID)
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	case http.MethodPost:
		principal, ok := requireStaff(w, r)
		if !ok {
			return
		}
		if !h.can(w, r, principal, "queue", "manage") {
			return
		}
		var req createTimeSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.AgencyID = strings.TrimSpace(req.AgencyID)
		if req.AgencyID == "" || req.StartTime == "" || req.EndTime == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "agency_id, start_time, and end_time are required")
			return
		}
		if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
			writeError(w, http.StatusBadRequest, "invalid_request", "day_of_week must be 0-6")
			return
		}
		if req.MaxAppointments <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "max_appointments must be positive")
			return
		}
		slot, err := h.Appointments.CreateTimeSlot(r.Context(), queue.CreateTimeSlotInput{
			AgencyID:        req.AgencyID,
			DayOfWeek:       req.DayOfWeek,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			MaxAppointments: req.MaxAppointments,
		})
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, slot)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	agencyID := queryParam(r, "agency_id")
	dateRaw := queryParam(r, "date")
	if agencyID == "" || dateRaw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id and date are required")
		return
	}
	date, err := time.Parse("2006-01-02", dateRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}
	slots, err := h.Appointments.AvailableSlots(r.Context(), agencyID, date)
	if err != nil {
		status, code, msg := mapAppointmentError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateAppointment(w, r)
	case http.MethodGet:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		agencyID := queryParam(r, "agency_id")
		userID := queryParam(r, "user_id")
		if principal.IsClient() {
			// Clients only ever see their own appointments.
			userID = principal.UserID
		} else if !requireAgency(w, r, principal, agencyID) {
			return
		}
		appointments, err := h.Appointments.ListAppointments(r.Context(), agencyID, queryParam(r, "date"), queryParam(r, "status"), userID)
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, appointments)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AgencyID = strings.TrimSpace(req.AgencyID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if req.AgencyID == "" || req.ServiceID == "" || req.Date == "" || req.Time == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id, service_id, date, and time are required")
		return
	}
	if req.ClientName == "" || req.ClientPhone == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "client_name and client_phone are required")
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	input := queue.CreateAppointmentInput{
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientEmail: req.ClientEmail,
		AgencyID:    req.AgencyID,
		ServiceID:   req.ServiceID,
		Date:        req.Date,
		Time:        req.Time,
		Notes:       req.Notes,
	}
	if principal, ok := principalFromContext(r.Context()); ok {
		input.UserID = principal.UserID
	}

	appointment, err := h.Appointments.CreateAppointment(r.Context(), input)
	if err != nil {
		status, code, msg := mapAppointmentError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, appointment)
}

func (h *Handler) handleAppointmentCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	code := queryParam(r, "code")
	phone := queryParam(r, "phone")
	if code == "" || phone == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code and phone are required")
		return
	}
	appointment, err := h.Appointments.FindByConfirmationCode(r.Context(), code, phone)
	if err != nil {
		status, errCode, msg := mapAppointmentError(err)
		writeError(w, status, errCode, msg)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

type convertResponse struct {
	Appointment queue.Appointment `json:"appointment"`
	Ticket      queue.Ticket      `json:"ticket"`
}

func (h *Handler) handleAppointmentActions(w http.ResponseWriter, r *http.Request) {
	appointmentID, action, ok := pathAction(r.URL.Path, "/api/appointments/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	if action == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		appointment, err := h.Appointments.GetAppointment(r.Context(), appointmentID)
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, appointment)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req appointmentActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := queue.AppointmentActionInput{
		AppointmentID: appointmentID,
		AgentID:       principal.UserID,
		Reason:        req.Reason,
		OccurredAt:    h.now(),
	}

	switch action {
	case "confirm":
		appointment, err := h.Appointments.ConfirmAppointment(r.Context(), input)
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, appointment)
	case "cancel":
		appointment, err := h.Appointments.CancelAppointment(r.Context(), input)
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, appointment)
	case "convert":
		appointment, ticket, err := h.Appointments.ConvertToTicket(r.Context(), input)
		if err != nil {
			status, code, msg := mapAppointmentError(err)
			writeError(w, status, code, msg)
			return
		}
		h.publishTicketEvent(r, realtime.EventTicketCreated, ticket)
		writeJSON(w, http.StatusOK, convertResponse{Appointment: appointment, Ticket: ticket})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func mapAppointmentError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrAppointmentNotFound):
		return http.StatusNotFound, "appointment_not_found", "appointment not found"
	case errors.Is(err, queue.ErrSlotNotFound):
		return http.StatusNotFound, "slot_not_found", "no time slot covers this date and time"
	case errors.Is(err, queue.ErrSlotFull):
		return http.StatusConflict, "slot_full", "time slot is fully booked"
	case errors.Is(err, queue.ErrAlreadyConverted):
		return http.StatusConflict, "already_converted", "appointment already converted to a ticket"
	case errors.Is(err, queue.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "appointment state does not allow this action"
	default:
		return mapQueueError(err)
	}
}
