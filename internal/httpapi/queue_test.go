package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
)

type fakeTickets struct {
	queue.TicketStore
	createFn   func(ctx context.Context, input queue.CreateTicketInput) (queue.Ticket, error)
	callFn     func(ctx context.Context, input queue.CallNextInput) (queue.CallNextResult, error)
	cancelFn   func(ctx context.Context, input queue.TicketActionInput) (queue.Ticket, error)
	findFn     func(ctx context.Context, agencyID, number, date string) (queue.Ticket, error)
	positionFn func(ctx context.Context, ticket queue.Ticket) (int, error)
	displayFn  func(ctx context.Context, agencyID string) (queue.DisplayBoard, error)
}

func (f fakeTickets) CreateTicket(ctx context.Context, input queue.CreateTicketInput) (queue.Ticket, error) {
	return f.createFn(ctx, input)
}

func (f fakeTickets) CallNext(ctx context.Context, input queue.CallNextInput) (queue.CallNextResult, error) {
	return f.callFn(ctx, input)
}

func (f fakeTickets) CancelTicket(ctx context.Context, input queue.TicketActionInput) (queue.Ticket, error) {
	return f.cancelFn(ctx, input)
}

func (f fakeTickets) FindTicketByNumber(ctx context.Context, agencyID, number, date string) (queue.Ticket, error) {
	return f.findFn(ctx, agencyID, number, date)
}

func (f fakeTickets) WaitingPosition(ctx context.Context, ticket queue.Ticket) (int, error) {
	return f.positionFn(ctx, ticket)
}

func (f fakeTickets) Display(ctx context.Context, agencyID string) (queue.DisplayBoard, error) {
	return f.displayFn(ctx, agencyID)
}

func TestCreateTicketPublic(t *testing.T) {
	h := newTestHandler()
	h.Tickets = fakeTickets{
		createFn: func(ctx context.Context, input queue.CreateTicketInput) (queue.Ticket, error) {
			if input.AgencyID != "agency-1" || input.ServiceID != "svc-1" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return queue.Ticket{
				TicketID:      "ticket-1",
				TicketNumber:  "F001",
				AgencyID:      input.AgencyID,
				Status:        queue.StatusWaiting,
				QueuePosition: 1,
			}, nil
		},
	}

	body, _ := json.Marshal(map[string]string{
		"agency_id":  "agency-1",
		"service_id": "svc-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var ticket queue.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ticket.TicketNumber != "F001" || ticket.Status != queue.StatusWaiting {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
}

func TestCreateTicketUnknownPriority(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]string{
		"agency_id":  "agency-1",
		"service_id": "svc-1",
		"priority":   "urgent",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCallNextEmptyQueueIsNotAnError(t *testing.T) {
	h := newTestHandler()
	h.Tickets = fakeTickets{
		callFn: func(ctx context.Context, input queue.CallNextInput) (queue.CallNextResult, error) {
			if input.AgentID != staffPrincipal.UserID {
				t.Fatalf("expected agent from session, got %q", input.AgentID)
			}
			return queue.CallNextResult{Empty: true}, nil
		},
	}

	body, _ := json.Marshal(map[string]string{
		"agency_id":  "agency-1",
		"counter_id": "counter-1",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var result queue.CallNextResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Empty {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestCallNextWrongAgent(t *testing.T) {
	h := newTestHandler()
	h.Tickets = fakeTickets{
		callFn: func(ctx context.Context, input queue.CallNextInput) (queue.CallNextResult, error) {
			return queue.CallNextResult{}, queue.ErrNotCounterAgent
		},
	}

	body, _ := json.Marshal(map[string]string{
		"agency_id":  "agency-1",
		"counter_id": "counter-1",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "not_counter_agent" {
		t.Fatalf("expected not_counter_agent, got %s", errResp.Error.Code)
	}
}

func TestCallNextRequiresSession(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]string{
		"agency_id":  "agency-1",
		"counter_id": "counter-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestCancelTerminalTicketConflicts(t *testing.T) {
	h := newTestHandler()
	h.Tickets = fakeTickets{
		cancelFn: func(ctx context.Context, input queue.TicketActionInput) (queue.Ticket, error) {
			return queue.Ticket{}, queue.ErrInvalidState
		},
	}

	body, _ := json.Marshal(map[string]string{"agency_id": "agency-1"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/tickets/ticket-9/actions/cancel", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestAgencyScopeEnforced(t *testing.T) {
	h := newTestHandler()
	bound := identity.Principal{UserID: "agent-2", Role: identity.RoleEmployee, AgencyID: "kinshasa"}

	body, _ := json.Marshal(map[string]string{
		"agency_id":  "goma",
		"counter_id": "counter-1",
	})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body)), bound)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestTicketCheckReturnsPosition(t *testing.T) {
	h := newTestHandler()
	h.Tickets = fakeTickets{
		findFn: func(ctx context.Context, agencyID, number, date string) (queue.Ticket, error) {
			if date != "2026-08-29" {
				t.Fatalf("expected today's date, got %q", date)
			}
			return queue.Ticket{TicketID: "ticket-1", TicketNumber: number, Status: queue.StatusWaiting}, nil
		},
		positionFn: func(ctx context.Context, ticket queue.Ticket) (int, error) {
			return 3, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/ticket-check?agency_id=agency-1&number=F004", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var check ticketCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if check.Position != 3 || check.Ticket.TicketNumber != "F004" {
		t.Fatalf("unexpected check response: %+v", check)
	}
}

func TestDisplayIsPublic(t *testing.T) {
	h := newTestHandler()
	h.Tickets = fakeTickets{
		displayFn: func(ctx context.Context, agencyID string) (queue.DisplayBoard, error) {
			return queue.DisplayBoard{AgencyName: "Agence Kinshasa", TotalWaiting: 4}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/display?agency_id=agency-1", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var board queue.DisplayBoard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if board.TotalWaiting != 4 {
		t.Fatalf("unexpected board: %+v", board)
	}
}

func TestDisplayMissingAgency(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/display", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}
