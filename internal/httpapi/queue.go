package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/directory"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/realtime"
)

type createTicketRequest struct {
	AgencyID    string `json:"agency_id"`
	ServiceID   string `json:"service_id"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	Priority    string `json:"priority"`
}

type callNextRequest struct {
	AgencyID  string `json:"agency_id"`
	CounterID string `json:"counter_id"`
}

type ticketActionRequest struct {
	AgencyID    string `json:"agency_id"`
	Reason      string `json:"reason"`
	ToCounterID string `json:"to_counter_id"`
}

type counterActionRequest struct {
	AgencyID string `json:"agency_id"`
	Status   string `json:"status"`
	AgentID  string `json:"agent_id"`
}

type createCounterRequest struct {
	AgencyID   string   `json:"agency_id"`
	Number     int      `json:"number"`
	Name       string   `json:"name"`
	ServiceIDs []string `json:"service_ids"`
}

func (h *Handler) publishTicketEvent(r *http.Request, eventType string, ticket queue.Ticket) {
	event := realtime.Event{
		Type:         eventType,
		AgencyID:     ticket.AgencyID,
		ServiceID:    ticket.ServiceID,
		TicketID:     ticket.TicketID,
		TicketNumber: ticket.TicketNumber,
	}
	if ticket.CounterID != nil {
		event.CounterID = *ticket.CounterID
	}
	h.Events.Publish(r.Context(), event)
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateTicket(w, r)
	case http.MethodGet:
		h.handleListTickets(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AgencyID = strings.TrimSpace(req.AgencyID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Priority = strings.TrimSpace(req.Priority)
	if req.AgencyID == "" || req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id and service_id are required")
		return
	}
	if req.Priority != "" && !queue.ValidPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown priority")
		return
	}

	input := queue.CreateTicketInput{
		AgencyID:    req.AgencyID,
		ServiceID:   req.ServiceID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Priority:    req.Priority,
		CreatedAt:   h.now(),
	}
	// Kiosk creation is public; a logged-in client gets the ticket linked to
	// their account.
	if principal, ok := principalFromContext(r.Context()); ok {
		input.UserID = principal.UserID
	}

	ticket, err := h.Tickets.CreateTicket(r.Context(), input)
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	h.publishTicketEvent(r, realtime.EventTicketCreated, ticket)
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	agencyID := queryParam(r, "agency_id")
	if !requireAgency(w, r, principal, agencyID) {
		return
	}
	date := queryParam(r, "date")
	var statuses []string
	if raw := queryParam(r, "status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}
	tickets, err := h.Tickets.ListTickets(r.Context(), agencyID, date, statuses)
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	var req callNextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AgencyID = strings.TrimSpace(req.AgencyID)
	req.CounterID = strings.TrimSpace(req.CounterID)
	if req.AgencyID == "" || req.CounterID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id and counter_id are required")
		return
	}
	if !requireAgency(w, r, principal, req.AgencyID) {
		return
	}

	result, err := h.Tickets.CallNext(r.Context(), queue.CallNextInput{
		AgencyID:  req.AgencyID,
		CounterID: req.CounterID,
		AgentID:   principal.UserID,
		CalledAt:  h.now(),
	})
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	if result.AutoCompleted != nil {
		h.publishTicketEvent(r, realtime.EventTicketCompleted, *result.AutoCompleted)
	}
	if !result.Empty {
		h.publishTicketEvent(r, realtime.EventTicketCalled, result.Ticket)
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTicketActions(w http.ResponseWriter, r *http.Request) {
	ticketID, action, ok := pathAction(r.URL.Path, "/api/tickets/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if action == "" {
		h.handleGetTicket(w, r, ticketID)
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
	var req ticketActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AgencyID = strings.TrimSpace(req.AgencyID)
	req.ToCounterID = strings.TrimSpace(req.ToCounterID)
	if !requireAgency(w, r, principal, req.AgencyID) {
		return
	}

	input := queue.TicketActionInput{
		AgencyID:   req.AgencyID,
		TicketID:   ticketID,
		Reason:     req.Reason,
		OccurredAt: h.now(),
	}

	var ticket queue.Ticket
	var err error
	var eventType string
	switch action {
	case "cancel":
		ticket, err = h.Tickets.CancelTicket(r.Context(), input)
		eventType = realtime.EventTicketCancelled
	case "recall":
		ticket, err = h.Tickets.RecallTicket(r.Context(), input)
		eventType = realtime.EventTicketRecalled
	case "transfer":
		if req.ToCounterID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "to_counter_id is required")
			return
		}
		var target queue.Counter
		target, err = h.Tickets.GetCounter(r.Context(), req.AgencyID, req.ToCounterID)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		input.ToCounterID = target.CounterID
		input.CounterName = target.Name
		ticket, err = h.Tickets.TransferTicket(r.Context(), input)
		eventType = realtime.EventTicketTransferred
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	h.publishTicketEvent(r, eventType, ticket)
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	agencyID := queryParam(r, "agency_id")
	if !requireAgency(w, r, principal, agencyID) {
		return
	}
	ticket, err := h.Tickets.GetTicket(r.Context(), agencyID, ticketID)
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
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
		counters, err := h.Tickets.ListCounters(r.Context(), agencyID, queryParam(r, "active") == "true")
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, counters)
	case http.MethodPost:
		principal, ok := requireStaff(w, r)
		if !ok {
			return
		}
		if !h.can(w, r, principal, "queue", "manage") {
			return
		}
		var req createCounterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.AgencyID = strings.TrimSpace(req.AgencyID)
		if req.AgencyID == "" || req.Number <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "agency_id and a positive number are required")
			return
		}
		if !requireAgency(w, r, principal, req.AgencyID) {
			return
		}
		counter, err := h.Tickets.CreateCounter(r.Context(), queue.CreateCounterInput{
			AgencyID:   req.AgencyID,
			Number:     req.Number,
			Name:       req.Name,
			ServiceIDs: req.ServiceIDs,
		})
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, counter)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCounterActions(w http.ResponseWriter, r *http.Request) {
	counterID, action, ok := pathAction(r.URL.Path, "/api/counters/")
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
		agencyID := queryParam(r, "agency_id")
		if !requireAgency(w, r, principal, agencyID) {
			return
		}
		counter, err := h.Tickets.GetCounter(r.Context(), agencyID, counterID)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, counter)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req counterActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AgencyID = strings.TrimSpace(req.AgencyID)
	if !requireAgency(w, r, principal, req.AgencyID) {
		return
	}

	input := queue.CounterActionInput{
		AgencyID:   req.AgencyID,
		CounterID:  counterID,
		AgentID:    principal.UserID,
		OccurredAt: h.now(),
	}

	switch action {
	case "start":
		ticket, err := h.Tickets.StartService(r.Context(), input)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	case "complete":
		ticket, counter, err := h.Tickets.CompleteService(r.Context(), input)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		h.publishTicketEvent(r, realtime.EventTicketCompleted, ticket)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ticket": ticket, "counter": counter})
	case "no-show":
		ticket, counter, err := h.Tickets.MarkNoShow(r.Context(), input)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		h.publishTicketEvent(r, realtime.EventTicketNoShow, ticket)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ticket": ticket, "counter": counter})
	case "status":
		if req.Status == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "status is required")
			return
		}
		counter, err := h.Tickets.UpdateCounterStatus(r.Context(), req.AgencyID, counterID, req.Status)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		h.publishCounterEvent(r, counter)
		writeJSON(w, http.StatusOK, counter)
	case "assign":
		agentID := strings.TrimSpace(req.AgentID)
		if agentID == "" {
			agentID = principal.UserID
		}
		counter, err := h.Tickets.AssignAgent(r.Context(), req.AgencyID, counterID, agentID)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
		h.publishCounterEvent(r, counter)
		writeJSON(w, http.StatusOK, counter)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) publishCounterEvent(r *http.Request, counter queue.Counter) {
	h.Events.Publish(r.Context(), realtime.Event{
		Type:        realtime.EventCounterUpdated,
		AgencyID:    counter.AgencyID,
		CounterID:   counter.CounterID,
		CounterName: counter.Name,
	})
}

func (h *Handler) handleDisplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	agencyID := queryParam(r, "agency_id")
	if agencyID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id is required")
		return
	}
	board, err := h.Tickets.Display(r.Context(), agencyID)
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type ticketCheckResponse struct {
	Ticket   queue.Ticket `json:"ticket"`
	Position int          `json:"position"`
}

func (h *Handler) handleTicketCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	agencyID := queryParam(r, "agency_id")
	number := queryParam(r, "number")
	if agencyID == "" || number == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "agency_id and number are required")
		return
	}
	date := queryParam(r, "date")
	if date == "" {
		date = h.now().Format("2006-01-02")
	}
	ticket, err := h.Tickets.FindTicketByNumber(r.Context(), agencyID, number, date)
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	var position int
	if !ticket.Terminal() {
		position, err = h.Tickets.WaitingPosition(r.Context(), ticket)
		if err != nil {
			status, code, msg := mapQueueError(err)
			writeError(w, status, code, msg)
			return
		}
	}
	writeJSON(w, http.StatusOK, ticketCheckResponse{Ticket: ticket, Position: position})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	agencyID := queryParam(r, "agency_id")
	if !requireAgency(w, r, principal, agencyID) {
		return
	}
	date := queryParam(r, "date")
	if date == "" {
		date = h.now().Format("2006-01-02")
	}
	stats, err := h.Tickets.Stats(r.Context(), agencyID, date)
	if err != nil {
		status, code, msg := mapQueueError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func mapQueueError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, queue.ErrCounterNotFound):
		return http.StatusNotFound, "counter_not_found", "counter not found"
	case errors.Is(err, directory.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, directory.ErrAgencyNotFound):
		return http.StatusNotFound, "agency_not_found", "agency not found"
	case errors.Is(err, queue.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, queue.ErrCounterUnavailable):
		return http.StatusConflict, "counter_unavailable", "counter is closed or inactive"
	case errors.Is(err, queue.ErrNotCounterAgent):
		return http.StatusForbidden, "not_counter_agent", "counter is assigned to another agent"
	case errors.Is(err, queue.ErrNoCurrentTicket):
		return http.StatusConflict, "no_current_ticket", "no ticket at this counter"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
