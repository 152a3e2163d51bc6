package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
)

type fakeAppointments struct {
	queue.AppointmentStore
	createFn    func(ctx context.Context, input queue.CreateAppointmentInput) (queue.Appointment, error)
	findFn      func(ctx context.Context, code, phone string) (queue.Appointment, error)
	convertFn   func(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, queue.Ticket, error)
	availableFn func(ctx context.Context, agencyID string, date time.Time) ([]queue.AvailableSlot, error)
	listFn      func(ctx context.Context, agencyID, date, status, userID string) ([]queue.Appointment, error)
}

func (f fakeAppointments) CreateAppointment(ctx context.Context, input queue.CreateAppointmentInput) (queue.Appointment, error) {
	return f.createFn(ctx, input)
}

func (f fakeAppointments) FindByConfirmationCode(ctx context.Context, code, phone string) (queue.Appointment, error) {
	return f.findFn(ctx, code, phone)
}

func (f fakeAppointments) ConvertToTicket(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, queue.Ticket, error) {
	return f.convertFn(ctx, input)
}

func (f fakeAppointments) AvailableSlots(ctx context.Context, agencyID string, date time.Time) ([]queue.AvailableSlot, error) {
	return f.availableFn(ctx, agencyID, date)
}

func (f fakeAppointments) ListAppointments(ctx context.Context, agencyID, date, status, userID string) ([]queue.Appointment, error) {
	return f.listFn(ctx, agencyID, date, status, userID)
}

func TestCreateAppointmentPublic(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		createFn: func(ctx context.Context, input queue.CreateAppointmentInput) (queue.Appointment, error) {
			if input.ClientPhone != "+243810000000" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return queue.Appointment{
				AppointmentID:    "apt-1",
				ConfirmationCode: "RDV-20260901-1234",
				Status:           queue.AppointmentPending,
			}, nil
		},
	}

	body, _ := json.Marshal(map[string]string{
		"agency_id":    "agency-1",
		"service_id":   "svc-1",
		"date":         "2026-09-01",
		"time":         "10:30",
		"client_name":  "Marie K.",
		"client_phone": "+243810000000",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var appointment queue.Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appointment); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if appointment.ConfirmationCode == "" {
		t.Fatalf("expected a confirmation code, got %+v", appointment)
	}
}

func TestCreateAppointmentSlotFull(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		createFn: func(ctx context.Context, input queue.CreateAppointmentInput) (queue.Appointment, error) {
			return queue.Appointment{}, queue.ErrSlotFull
		},
	}

	body, _ := json.Marshal(map[string]string{
		"agency_id":    "agency-1",
		"service_id":   "svc-1",
		"date":         "2026-09-01",
		"time":         "10:30",
		"client_name":  "Marie K.",
		"client_phone": "+243810000000",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "slot_full" {
		t.Fatalf("expected slot_full, got %s", errResp.Error.Code)
	}
}

func TestCreateAppointmentBadDate(t *testing.T) {
	h := newTestHandler()

	body, _ := json.Marshal(map[string]string{
		"agency_id":    "agency-1",
		"service_id":   "svc-1",
		"date":         "01/09/2026",
		"time":         "10:30",
		"client_name":  "Marie K.",
		"client_phone": "+243810000000",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAppointmentCheckByCodeAndPhone(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		findFn: func(ctx context.Context, code, phone string) (queue.Appointment, error) {
			if code != "RDV-20260901-1234" || phone != "+243810000000" {
				t.Fatalf("unexpected lookup: code=%q phone=%q", code, phone)
			}
			return queue.Appointment{AppointmentID: "apt-1", ConfirmationCode: code, Status: queue.AppointmentConfirmed}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/appointments/check?code=RDV-20260901-1234&phone=%2B243810000000", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestConvertAppointment(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		convertFn: func(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, queue.Ticket, error) {
			if input.AgentID != staffPrincipal.UserID {
				t.Fatalf("expected agent from session, got %q", input.AgentID)
			}
			ticketID := "ticket-1"
			return queue.Appointment{AppointmentID: input.AppointmentID, Status: queue.AppointmentCompleted, TicketID: &ticketID},
				queue.Ticket{TicketID: ticketID, TicketNumber: "F009", Status: queue.StatusWaiting}, nil
		},
	}

	body, _ := json.Marshal(map[string]string{})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/appointments/apt-1/actions/convert", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var converted convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&converted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if converted.Ticket.TicketNumber != "F009" {
		t.Fatalf("unexpected conversion: %+v", converted)
	}
}

func TestConvertAppointmentTwiceConflicts(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		convertFn: func(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, queue.Ticket, error) {
			return queue.Appointment{}, queue.Ticket{}, queue.ErrAlreadyConverted
		},
	}

	body, _ := json.Marshal(map[string]string{})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/appointments/apt-1/actions/convert", bytes.NewReader(body)), staffPrincipal)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp.Error.Code != "already_converted" {
		t.Fatalf("expected already_converted, got %s", errResp.Error.Code)
	}
}

func TestListAppointmentsClientSeesOnlyOwn(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		listFn: func(ctx context.Context, agencyID, date, status, userID string) ([]queue.Appointment, error) {
			if userID != "client-7" {
				t.Fatalf("expected list scoped to the client, got user_id=%q", userID)
			}
			return []queue.Appointment{{AppointmentID: "apt-1"}}, nil
		},
	}
	client := identity.Principal{UserID: "client-7", Role: identity.RoleClient}

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/appointments?user_id=someone-else", nil), client)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestAvailableSlotsBadDate(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/timeslots/available?agency_id=agency-1&date=tomorrow", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAvailableSlotsPublic(t *testing.T) {
	h := newTestHandler()
	h.Appointments = fakeAppointments{
		availableFn: func(ctx context.Context, agencyID string, date time.Time) ([]queue.AvailableSlot, error) {
			return []queue.AvailableSlot{{AvailableSpots: 2}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/timeslots/available?agency_id=agency-1&date=2026-09-01", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var slots []queue.AvailableSlot
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(slots) != 1 || slots[0].AvailableSpots != 2 {
		t.Fatalf("unexpected slots: %+v", slots)
	}
}
