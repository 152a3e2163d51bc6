package queue

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotNotFound        = errors.New("time slot not found")
	ErrCounterNotFound     = errors.New("counter not found")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrNoTicket            = errors.New("no ticket available")
	ErrCounterUnavailable  = errors.New("counter unavailable")
	ErrNotCounterAgent     = errors.New("agent not assigned to counter")
	ErrSlotFull            = errors.New("time slot full")
	ErrAlreadyConverted    = errors.New("appointment already converted")
	ErrNoCurrentTicket     = errors.New("no current ticket at counter")
)

type CreateTicketInput struct {
	AgencyID    string
	ServiceID   string
	ClientName  string
	ClientPhone string
	UserID      string
	Priority    string
	CreatedAt   time.Time
}

type CallNextInput struct {
	AgencyID  string
	CounterID string
	AgentID   string
	CalledAt  time.Time
}

// CallNextResult carries either the called ticket or, when the queue is
// empty, Empty=true with the counter cleared to available. A previously held
// ticket force-completed by the call is reported in AutoCompleted.
type CallNextResult struct {
	Ticket        Ticket
	Counter       Counter
	Empty         bool
	AutoCompleted *Ticket
}

type CounterActionInput struct {
	AgencyID   string
	CounterID  string
	AgentID    string
	OccurredAt time.Time
}

type TicketActionInput struct {
	AgencyID    string
	TicketID    string
	Reason      string
	ToCounterID string
	CounterName string
	OccurredAt  time.Time
}

type CreateCounterInput struct {
	AgencyID   string
	Number     int
	Name       string
	ServiceIDs []string
}

type CreateTimeSlotInput struct {
	AgencyID        string
	DayOfWeek       int
	StartTime       string
	EndTime         string
	MaxAppointments int
}

type CreateAppointmentInput struct {
	UserID      string
	ClientName  string
	ClientPhone string
	ClientEmail string
	AgencyID    string
	ServiceID   string
	Date        string
	Time        string
	Notes       string
}

type AppointmentActionInput struct {
	AppointmentID string
	AgentID       string
	Reason        string
	OccurredAt    time.Time
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (Ticket, error)
	GetTicket(ctx context.Context, agencyID, ticketID string) (Ticket, error)
	FindTicketByNumber(ctx context.Context, agencyID, number, date string) (Ticket, error)
	ListTickets(ctx context.Context, agencyID, date string, statuses []string) ([]Ticket, error)
	WaitingPosition(ctx context.Context, ticket Ticket) (int, error)

	CallNext(ctx context.Context, input CallNextInput) (CallNextResult, error)
	StartService(ctx context.Context, input CounterActionInput) (Ticket, error)
	CompleteService(ctx context.Context, input CounterActionInput) (Ticket, Counter, error)
	MarkNoShow(ctx context.Context, input CounterActionInput) (Ticket, Counter, error)
	CancelTicket(ctx context.Context, input TicketActionInput) (Ticket, error)
	RecallTicket(ctx context.Context, input TicketActionInput) (Ticket, error)
	TransferTicket(ctx context.Context, input TicketActionInput) (Ticket, error)

	CreateCounter(ctx context.Context, input CreateCounterInput) (Counter, error)
	GetCounter(ctx context.Context, agencyID, counterID string) (Counter, error)
	ListCounters(ctx context.Context, agencyID string, activeOnly bool) ([]Counter, error)
	UpdateCounterStatus(ctx context.Context, agencyID, counterID, status string) (Counter, error)
	AssignAgent(ctx context.Context, agencyID, counterID, agentID string) (Counter, error)

	Display(ctx context.Context, agencyID string) (DisplayBoard, error)
	Stats(ctx context.Context, agencyID, date string) (Stats, error)
}

type AppointmentStore interface {
	CreateTimeSlot(ctx context.Context, input CreateTimeSlotInput) (TimeSlot, error)
	ListTimeSlots(ctx context.Context, agencyID string) ([]TimeSlot, error)
	AvailableSlots(ctx context.Context, agencyID string, date time.Time) ([]AvailableSlot, error)

	CreateAppointment(ctx context.Context, input CreateAppointmentInput) (Appointment, error)
	GetAppointment(ctx context.Context, appointmentID string) (Appointment, error)
	FindByConfirmationCode(ctx context.Context, code, phone string) (Appointment, error)
	ListAppointments(ctx context.Context, agencyID, date, status, userID string) ([]Appointment, error)
	ConfirmAppointment(ctx context.Context, input AppointmentActionInput) (Appointment, error)
	CancelAppointment(ctx context.Context, input AppointmentActionInput) (Appointment, error)
	ConvertToTicket(ctx context.Context, input AppointmentActionInput) (Appointment, Ticket, error)
}
