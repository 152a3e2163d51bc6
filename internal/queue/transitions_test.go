package queue

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"call_next", StatusWaiting, true},
		{"call_next", StatusServing, false},
		{"call_next", StatusCompleted, false},
		{"start_serving", StatusCalled, true},
		{"start_serving", StatusWaiting, false},
		{"complete", StatusServing, true},
		{"complete", StatusCalled, true},
		{"complete", StatusWaiting, false},
		{"cancel", StatusWaiting, true},
		{"cancel", StatusCalled, true},
		{"cancel", StatusServing, false},
		{"cancel", StatusCancelled, false},
		{"recall", StatusCalled, true},
		{"recall", StatusCompleted, false},
		{"transfer", StatusWaiting, true},
		{"transfer", StatusServing, true},
		{"transfer", StatusNoShow, false},
		{"no_show", StatusCalled, true},
		{"no_show", StatusWaiting, true},
		{"no_show", StatusCompleted, false},
		{"unknown", StatusWaiting, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestValidAppointmentTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"confirm", AppointmentPending, true},
		{"confirm", AppointmentConfirmed, false},
		{"cancel", AppointmentPending, true},
		{"cancel", AppointmentConfirmed, true},
		{"cancel", AppointmentCompleted, false},
		{"cancel", AppointmentCancelled, false},
		{"convert_to_ticket", AppointmentConfirmed, true},
		{"convert_to_ticket", AppointmentInProgress, false},
		{"complete", AppointmentInProgress, true},
		{"no_show", AppointmentConfirmed, true},
		{"no_show", AppointmentNoShow, false},
	}

	for _, tt := range cases {
		if got := ValidAppointmentTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidAppointmentTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestCanConvertToTicket(t *testing.T) {
	ticketID := "ticket-1"
	cases := []struct {
		name        string
		appointment Appointment
		want        error
	}{
		{"pending converts", Appointment{Status: AppointmentPending}, nil},
		{"confirmed converts", Appointment{Status: AppointmentConfirmed}, nil},
		{"cancelled rejected", Appointment{Status: AppointmentCancelled}, ErrInvalidState},
		{"in-progress rejected", Appointment{Status: AppointmentInProgress}, ErrInvalidState},
		{"linked appointment rejected", Appointment{Status: AppointmentPending, TicketID: &ticketID}, ErrAlreadyConverted},
	}

	for _, tt := range cases {
		if got := CanConvertToTicket(tt.appointment); got != tt.want {
			t.Fatalf("%s: CanConvertToTicket()=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityRank(PriorityVIP) < PriorityRank(PriorityPriority)) {
		t.Fatal("vip must rank before priority")
	}
	if !(PriorityRank(PriorityPriority) < PriorityRank(PriorityNormal)) {
		t.Fatal("priority must rank before normal")
	}
	if PriorityRank("bogus") != PriorityRank(PriorityNormal) {
		t.Fatal("unknown priority must rank as normal")
	}
}

func TestNewConfirmationCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewConfirmationCode()
		if len(code) != 8 {
			t.Fatalf("code %q: want 8 characters", code)
		}
		for _, r := range code {
			if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("code %q: unexpected character %q", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Fatalf("expected mostly unique codes, got %d distinct of 100", len(seen))
	}
}
