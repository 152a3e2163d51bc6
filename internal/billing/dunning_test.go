package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReminderStageFor(t *testing.T) {
	cases := []struct {
		days  int
		stage string
		fire  bool
	}{
		{0, "", false},
		{2, "", false},
		{3, ReminderJ3, true},
		{6, ReminderJ3, true},
		{7, ReminderJ7, true},
		{13, ReminderJ7, true},
		{14, ReminderJ14, true},
		{15, ReminderJ14, true},
		{60, ReminderJ14, true},
	}
	for _, tt := range cases {
		stage, fire := ReminderStageFor(tt.days)
		assert.Equal(t, tt.fire, fire, "days=%d", tt.days)
		assert.Equal(t, tt.stage, stage, "days=%d", tt.days)
	}
}

// An invoice that jumps straight past several thresholds gets only the most
// severe stage; the skipped ones are never sent.
func TestReminderStageSkipsEarlierStages(t *testing.T) {
	stage, fire := ReminderStageFor(15)
	assert.True(t, fire)
	assert.Equal(t, ReminderJ14, stage)
	assert.NotEqual(t, ReminderJ3, stage)
	assert.NotEqual(t, ReminderJ7, stage)
}

func TestStatusForPayments(t *testing.T) {
	assert.Equal(t, StatusSent, StatusForPayments(StatusSent, 1200, 0))
	assert.Equal(t, StatusPartiallyPaid, StatusForPayments(StatusSent, 1200, 400))
	assert.Equal(t, StatusPaid, StatusForPayments(StatusSent, 1200, 1200))
	assert.Equal(t, StatusPaid, StatusForPayments(StatusPartiallyPaid, 1200, 1500))

	// never regress a paid invoice
	assert.Equal(t, StatusPaid, StatusForPayments(StatusPaid, 1200, 0))
	// drafts and cancelled invoices are untouched by payment sums
	assert.Equal(t, StatusDraft, StatusForPayments(StatusDraft, 100, 100))
	assert.Equal(t, StatusCancelled, StatusForPayments(StatusCancelled, 100, 100))
}

func TestBalance(t *testing.T) {
	assert.Equal(t, 800.0, Balance(1200, 400))
	assert.Equal(t, 0.0, Balance(1200, 1200))
	assert.Equal(t, 0.0, Balance(1200, 1300))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 95.0, LineTotal(10, 10, 5))
	assert.Equal(t, 0.0, LineTotal(0, 10, 0))
}

func TestValidStatusTransition(t *testing.T) {
	assert.True(t, ValidStatusTransition(StatusDraft, StatusValidated))
	assert.True(t, ValidStatusTransition(StatusValidated, StatusSent))
	assert.True(t, ValidStatusTransition(StatusSent, StatusPartiallyPaid))
	assert.True(t, ValidStatusTransition(StatusSent, StatusPaid))
	assert.True(t, ValidStatusTransition(StatusPartiallyPaid, StatusPaid))

	assert.False(t, ValidStatusTransition(StatusPaid, StatusSent))
	assert.False(t, ValidStatusTransition(StatusDraft, StatusSent))
	assert.False(t, ValidStatusTransition(StatusCancelled, StatusDraft))
	assert.False(t, ValidStatusTransition(StatusSent, StatusDraft))
}
