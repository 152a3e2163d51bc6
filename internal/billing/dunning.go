package billing

// ReminderStageFor maps days overdue to the single reminder stage a dunning
// run may fire. Stages are checked highest first, so an invoice that jumped
// several thresholds between runs only gets the most severe one; earlier
// stages are never sent retroactively.
func ReminderStageFor(daysOverdue int) (string, bool) {
	switch {
	case daysOverdue >= 14:
		return ReminderJ14, true
	case daysOverdue >= 7:
		return ReminderJ7, true
	case daysOverdue >= 3:
		return ReminderJ3, true
	}
	return "", false
}

// StatusForPayments recomputes an invoice status from the sum of confirmed
// payments. The status only ever moves forward: a paid invoice stays paid
// even if called with a lower sum.
func StatusForPayments(current string, total, confirmedSum float64) string {
	if current == StatusPaid || current == StatusCancelled || current == StatusDraft {
		return current
	}
	if confirmedSum >= total {
		return StatusPaid
	}
	if confirmedSum > 0 {
		return StatusPartiallyPaid
	}
	return current
}

// Balance is the outstanding amount, never negative.
func Balance(total, confirmedSum float64) float64 {
	if confirmedSum >= total {
		return 0
	}
	return total - confirmedSum
}

var forwardStatus = map[string][]string{
	StatusDraft:         {StatusValidated, StatusCancelled},
	StatusValidated:     {StatusSent, StatusCancelled},
	StatusSent:          {StatusPartiallyPaid, StatusPaid, StatusCancelled},
	StatusPartiallyPaid: {StatusPaid, StatusCancelled},
	StatusPaid:          {},
	StatusCancelled:     {},
}

func ValidStatusTransition(from, to string) bool {
	for _, next := range forwardStatus[from] {
		if next == to {
			return true
		}
	}
	return false
}
