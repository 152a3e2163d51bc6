package queue

var ticketTransitions = map[string][]string{
	"call_next":     {StatusWaiting},
	"start_serving": {StatusCalled},
	"complete":      {StatusCalled, StatusServing},
	"cancel":        {StatusWaiting, StatusCalled},
	"recall":        {StatusCalled},
	"transfer":      {StatusWaiting, StatusCalled, StatusServing},
	"no_show":       {StatusWaiting, StatusCalled},
}

// ValidTransition reports whether the action is allowed from the given
// ticket status. Terminal statuses allow nothing.
func ValidTransition(action, fromStatus string) bool {
	allowed, ok := ticketTransitions[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

var appointmentTransitions = map[string][]string{
	"confirm":           {AppointmentPending},
	"cancel":            {AppointmentPending, AppointmentConfirmed, AppointmentInProgress},
	"convert_to_ticket": {AppointmentPending, AppointmentConfirmed},
	"complete":          {AppointmentInProgress},
	"no_show":           {AppointmentPending, AppointmentConfirmed},
}

func ValidAppointmentTransition(action, fromStatus string) bool {
	allowed, ok := appointmentTransitions[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// CanConvertToTicket guards the appointment-to-ticket conversion: one linked
// ticket per appointment, and only pending or confirmed bookings convert.
func CanConvertToTicket(a Appointment) error {
	if a.TicketID != nil {
		return ErrAlreadyConverted
	}
	if !ValidAppointmentTransition("convert_to_ticket", a.Status) {
		return ErrInvalidState
	}
	return nil
}
