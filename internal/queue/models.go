package queue

import "time"

const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusServing   = "serving"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

const (
	PriorityVIP      = "vip"
	PriorityPriority = "priority"
	PriorityNormal   = "normal"
)

// PriorityRank orders tickets for call_next: vip before priority before
// normal. The rank is explicit rather than derived from the label so the
// ordering survives renames.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityVIP:
		return 0
	case PriorityPriority:
		return 1
	default:
		return 2
	}
}

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityVIP, PriorityPriority, PriorityNormal:
		return true
	}
	return false
}

type Ticket struct {
	TicketID      string     `json:"ticket_id"`
	TicketNumber  string     `json:"ticket_number"`
	AgencyID      string     `json:"agency_id"`
	ServiceID     string     `json:"service_id,omitempty"`
	ClientName    string     `json:"client_name,omitempty"`
	ClientPhone   string     `json:"client_phone,omitempty"`
	UserID        *string    `json:"user_id,omitempty"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	Date          string     `json:"date"`
	CreatedAt     time.Time  `json:"created_at"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	ServedAt      *time.Time `json:"served_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CounterID     *string    `json:"counter_id,omitempty"`
	ServedBy      *string    `json:"served_by,omitempty"`
	EstimatedWait int        `json:"estimated_wait_minutes"`
	QueuePosition int        `json:"queue_position"`
	Notes         string     `json:"notes,omitempty"`
}

func (t Ticket) Terminal() bool {
	switch t.Status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

const (
	CounterAvailable = "available"
	CounterBusy      = "busy"
	CounterClosed    = "closed"
	CounterBreak     = "break"
)

type Counter struct {
	CounterID       string   `json:"counter_id"`
	AgencyID        string   `json:"agency_id"`
	Number          int      `json:"number"`
	Name            string   `json:"name,omitempty"`
	ServiceIDs      []string `json:"service_ids"`
	CurrentAgentID  *string  `json:"current_agent_id,omitempty"`
	Status          string   `json:"status"`
	Active          bool     `json:"active"`
	CurrentTicketID *string  `json:"current_ticket_id,omitempty"`
}

type TimeSlot struct {
	SlotID          string `json:"slot_id"`
	AgencyID        string `json:"agency_id"`
	DayOfWeek       int    `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxAppointments int    `json:"max_appointments"`
	Active          bool   `json:"active"`
}

// AvailableSlot is a TimeSlot offered for booking together with the spots
// still open in the requested date's window.
type AvailableSlot struct {
	TimeSlot
	AvailableSpots int `json:"available_spots"`
}

const (
	AppointmentPending    = "pending"
	AppointmentConfirmed  = "confirmed"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
	AppointmentNoShow     = "no_show"
)

type Appointment struct {
	AppointmentID      string     `json:"appointment_id"`
	UserID             *string    `json:"user_id,omitempty"`
	ClientName         string     `json:"client_name"`
	ClientPhone        string     `json:"client_phone"`
	ClientEmail        string     `json:"client_email,omitempty"`
	AgencyID           string     `json:"agency_id"`
	ServiceID          string     `json:"service_id"`
	Date               string     `json:"date"`
	Time               string     `json:"time"`
	ConfirmationCode   string     `json:"confirmation_code"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	HandledBy          *string    `json:"handled_by,omitempty"`
	TicketID           *string    `json:"ticket_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Stats struct {
	WaitingCount    int     `json:"waiting_count"`
	ServingCount    int     `json:"serving_count"`
	CompletedToday  int     `json:"completed_today"`
	AverageWaitMins float64 `json:"average_wait_time"`
	TotalToday      int     `json:"total_today"`
}

type DisplayBoard struct {
	AgencyName    string    `json:"agency_name"`
	Now           time.Time `json:"current_datetime"`
	Counters      []Counter `json:"counters"`
	Waiting       []Ticket  `json:"waiting_tickets"`
	LastCalled    []Ticket  `json:"called_tickets"`
	TotalWaiting  int       `json:"total_waiting"`
	AvgWaitMins   float64   `json:"avg_wait_time"`
}
