package httpapi

import (
	"net/http"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/crm"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/directory"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/hr"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/jobs"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/operations"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/realtime"
)

type Handler struct {
	Directory    directory.Store
	Identity     identity.Store
	CRM          crm.Store
	Billing      billing.Store
	Operations   operations.Store
	HR           hr.Store
	Tickets      queue.TicketStore
	Appointments queue.AppointmentStore

	// Settings is the in-memory system_parameters snapshot; parameter writes
	// refresh it so other components read current values. Nil skips the
	// refresh.
	Settings *directory.Settings

	// Jobs and Events may be nil in tests; enqueue and publish calls are
	// guarded.
	Jobs   jobs.Enqueuer
	Events *realtime.Publisher

	SessionTTL     time.Duration
	SendCheckDelay time.Duration

	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)

	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/users", h.handleUsers)
	mux.HandleFunc("/api/users/", h.handleUserByID)

	mux.HandleFunc("/api/agencies", h.handleAgencies)
	mux.HandleFunc("/api/agencies/", h.handleAgencyByID)
	mux.HandleFunc("/api/services", h.handleServiceTypes)
	mux.HandleFunc("/api/services/", h.handleServiceTypeByID)
	mux.HandleFunc("/api/parameters", h.handleParameters)

	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/actions/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/", h.handleTicketActions)
	mux.HandleFunc("/api/counters", h.handleCounters)
	mux.HandleFunc("/api/counters/", h.handleCounterActions)
	mux.HandleFunc("/api/display", h.handleDisplay)
	mux.HandleFunc("/api/ticket-check", h.handleTicketCheck)
	mux.HandleFunc("/api/stats", h.handleStats)

	mux.HandleFunc("/api/timeslots", h.handleTimeSlots)
	mux.HandleFunc("/api/timeslots/available", h.handleAvailableSlots)
	mux.HandleFunc("/api/appointments", h.handleAppointments)
	mux.HandleFunc("/api/appointments/check", h.handleAppointmentCheck)
	mux.HandleFunc("/api/appointments/", h.handleAppointmentActions)

	mux.HandleFunc("/api/clients", h.handleClients)
	mux.HandleFunc("/api/clients/", h.handleClientActions)
	mux.HandleFunc("/api/sites", h.handleSites)
	mux.HandleFunc("/api/sites/", h.handleSiteByID)
	mux.HandleFunc("/api/contracts", h.handleContracts)

	mux.HandleFunc("/api/invoices", h.handleInvoices)
	mux.HandleFunc("/api/invoices/", h.handleInvoiceActions)
	mux.HandleFunc("/api/payments", h.handlePayments)
	mux.HandleFunc("/api/payments/", h.handlePaymentActions)

	mux.HandleFunc("/api/equipment", h.handleEquipment)
	mux.HandleFunc("/api/equipment/", h.handleEquipmentByID)
	mux.HandleFunc("/api/meters", h.handleMeters)
	mux.HandleFunc("/api/meters/", h.handleMeterActions)
	mux.HandleFunc("/api/interventions", h.handleInterventions)
	mux.HandleFunc("/api/interventions/", h.handleInterventionActions)

	mux.HandleFunc("/api/employees", h.handleEmployees)
	mux.HandleFunc("/api/employees/", h.handleEmployeeActions)
	mux.HandleFunc("/api/badges", h.handleBadges)
	mux.HandleFunc("/api/badges/", h.handleBadgeActions)
	mux.HandleFunc("/api/badge-scan", h.handleBadgeScan)
	mux.HandleFunc("/api/leaves", h.handleLeaves)
	mux.HandleFunc("/api/leaves/", h.handleLeaveActions)
	mux.HandleFunc("/api/leave-types", h.handleLeaveTypes)
	mux.HandleFunc("/api/payrolls", h.handlePayrolls)
	mux.HandleFunc("/api/payrolls/", h.handlePayrollByID)

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}
