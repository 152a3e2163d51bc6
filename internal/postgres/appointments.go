package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
)

type AppointmentStore struct {
	pool    *pgxpool.Pool
	tickets *QueueStore
}

func NewAppointmentStore(pool *pgxpool.Pool) *AppointmentStore {
	return &AppointmentStore{pool: pool, tickets: NewQueueStore(pool)}
}

const appointmentColumns = `appointment_id, user_id, client_name, client_phone, client_email, agency_id, service_id,
	date, time, confirmation_code, status, notes, confirmed_at, completed_at, cancelled_at, cancellation_reason,
	handled_by, ticket_id, created_at`

func (s *AppointmentStore) CreateTimeSlot(ctx context.Context, input queue.CreateTimeSlotInput) (queue.TimeSlot, error) {
	slotID := uuid.NewString()
	var slot queue.TimeSlot
	row := s.pool.QueryRow(ctx, `
		INSERT INTO time_slots (slot_id, agency_id, day_of_week, start_time, end_time, max_appointments, active)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE)
		RETURNING slot_id, agency_id, day_of_week, start_time, end_time, max_appointments, active
	`, slotID, input.AgencyID, input.DayOfWeek, input.StartTime, input.EndTime, input.MaxAppointments)
	if err := row.Scan(&slot.SlotID, &slot.AgencyID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime, &slot.MaxAppointments, &slot.Active); err != nil {
		return queue.TimeSlot{}, err
	}
	return slot, nil
}

func (s *AppointmentStore) ListTimeSlots(ctx context.Context, agencyID string) ([]queue.TimeSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot_id, agency_id, day_of_week, start_time, end_time, max_appointments, active
		FROM time_slots
		WHERE agency_id = $1
		ORDER BY day_of_week ASC, start_time ASC
	`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []queue.TimeSlot
	for rows.Next() {
		var slot queue.TimeSlot
		if err := rows.Scan(&slot.SlotID, &slot.AgencyID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime, &slot.MaxAppointments, &slot.Active); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// AvailableSlots lists the active slots for the date's weekday with the
// number of spots still open. Cancelled and completed appointments do not
// count against capacity.
func (s *AppointmentStore) AvailableSlots(ctx context.Context, agencyID string, date time.Time) ([]queue.AvailableSlot, error) {
	day := int(date.Weekday())
	dateStr := date.Format("2006-01-02")

	rows, err := s.pool.Query(ctx, `
		SELECT ts.slot_id, ts.agency_id, ts.day_of_week, ts.start_time, ts.end_time, ts.max_appointments, ts.active,
		       ts.max_appointments - (
			SELECT COUNT(*) FROM appointments a
			WHERE a.agency_id = ts.agency_id AND a.date = $3
			  AND a.time >= ts.start_time AND a.time < ts.end_time
			  AND a.status NOT IN ('cancelled','completed')
		       )
		FROM time_slots ts
		WHERE ts.agency_id = $1 AND ts.day_of_week = $2 AND ts.active
		ORDER BY ts.start_time ASC
	`, agencyID, day, dateStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []queue.AvailableSlot
	for rows.Next() {
		var slot queue.AvailableSlot
		if err := rows.Scan(&slot.SlotID, &slot.AgencyID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime,
			&slot.MaxAppointments, &slot.Active, &slot.AvailableSpots); err != nil {
			return nil, err
		}
		if slot.AvailableSpots < 0 {
			slot.AvailableSpots = 0
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Confirmation codes are random, so an insert can collide on the unique
// confirmation_code column. The collision aborts the booking transaction and
// the whole booking is retried with a fresh code.
const confirmationCodeAttempts = 3

// CreateAppointment books a spot. The capacity check runs inside a
// transaction holding the slot row FOR UPDATE, so two concurrent bookings of
// the last spot serialize and the second one gets ErrSlotFull.
func (s *AppointmentStore) CreateAppointment(ctx context.Context, input queue.CreateAppointmentInput) (queue.Appointment, error) {
	var appointment queue.Appointment
	var err error
	for attempt := 0; attempt < confirmationCodeAttempts; attempt++ {
		appointment, err = s.bookAppointment(ctx, input)
		if !isUniqueViolation(err) {
			break
		}
	}
	return appointment, err
}

func (s *AppointmentStore) bookAppointment(ctx context.Context, input queue.CreateAppointmentInput) (queue.Appointment, error) {
	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		return queue.Appointment{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Appointment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var slotID string
	var maxAppointments int
	var startTime, endTime string
	row := tx.QueryRow(ctx, `
		SELECT slot_id, start_time, end_time, max_appointments
		FROM time_slots
		WHERE agency_id = $1 AND day_of_week = $2 AND active
		  AND start_time <= $3 AND end_time > $3
		FOR UPDATE
	`, input.AgencyID, int(date.Weekday()), input.Time)
	if err = row.Scan(&slotID, &startTime, &endTime, &maxAppointments); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = queue.ErrSlotNotFound
		}
		return queue.Appointment{}, err
	}

	var booked int
	row = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE agency_id = $1 AND date = $2
		  AND time >= $3 AND time < $4
		  AND status NOT IN ('cancelled','completed')
	`, input.AgencyID, input.Date, startTime, endTime)
	if err = row.Scan(&booked); err != nil {
		return queue.Appointment{}, err
	}
	if booked >= maxAppointments {
		err = queue.ErrSlotFull
		return queue.Appointment{}, err
	}

	appointmentID := uuid.NewString()
	code := queue.NewConfirmationCode()
	row = tx.QueryRow(ctx, `
		INSERT INTO appointments (
			appointment_id, user_id, client_name, client_phone, client_email, agency_id, service_id,
			date, time, confirmation_code, status, notes, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
		RETURNING `+appointmentColumns+`
	`, appointmentID, nullIfEmpty(input.UserID), input.ClientName, input.ClientPhone, nullIfEmpty(input.ClientEmail),
		input.AgencyID, input.ServiceID, input.Date, input.Time, code, queue.AppointmentPending, nullIfEmpty(input.Notes))
	appointment, err := scanAppointment(row)
	if err != nil {
		return queue.Appointment{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return queue.Appointment{}, err
	}
	return appointment, nil
}

func (s *AppointmentStore) GetAppointment(ctx context.Context, appointmentID string) (queue.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1
	`, appointmentID)
	appointment, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Appointment{}, queue.ErrAppointmentNotFound
		}
		return queue.Appointment{}, err
	}
	return appointment, nil
}

// FindByConfirmationCode is the public check endpoint's lookup. The phone
// must match so a code alone is not enough to read someone else's booking.
func (s *AppointmentStore) FindByConfirmationCode(ctx context.Context, code, phone string) (queue.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE confirmation_code = $1 AND client_phone = $2
	`, code, phone)
	appointment, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Appointment{}, queue.ErrAppointmentNotFound
		}
		return queue.Appointment{}, err
	}
	return appointment, nil
}

func (s *AppointmentStore) ListAppointments(ctx context.Context, agencyID, date, status, userID string) ([]queue.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE 1=1
	`
	var args []interface{}
	add := func(clause, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += " AND " + clause + " = $" + strconv.Itoa(len(args))
	}
	add("agency_id", agencyID)
	add("date", date)
	add("status", status)
	add("user_id", userID)
	query += " ORDER BY date ASC, time ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []queue.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}

func (s *AppointmentStore) ConfirmAppointment(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, error) {
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'confirmed', confirmed_at = $2, handled_by = $3
		WHERE appointment_id = $1 AND status = 'pending'
		RETURNING `+appointmentColumns+`
	`, input.AppointmentID, at, nullIfEmpty(input.AgentID))
	appointment, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Appointment{}, s.classifyAppointmentError(ctx, input.AppointmentID)
		}
		return queue.Appointment{}, err
	}
	return appointment, nil
}

func (s *AppointmentStore) CancelAppointment(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, error) {
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled', cancelled_at = $2, cancellation_reason = $3, handled_by = $4
		WHERE appointment_id = $1 AND status IN ('pending','confirmed','in_progress')
		RETURNING `+appointmentColumns+`
	`, input.AppointmentID, at, nullIfEmpty(input.Reason), nullIfEmpty(input.AgentID))
	appointment, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Appointment{}, s.classifyAppointmentError(ctx, input.AppointmentID)
		}
		return queue.Appointment{}, err
	}
	return appointment, nil
}

// ConvertToTicket turns a pending or confirmed appointment into a priority
// ticket in today's queue and links the two one-to-one. A second conversion
// is rejected.
func (s *AppointmentStore) ConvertToTicket(ctx context.Context, input queue.AppointmentActionInput) (queue.Appointment, queue.Ticket, error) {
	appointment, err := s.GetAppointment(ctx, input.AppointmentID)
	if err != nil {
		return queue.Appointment{}, queue.Ticket{}, err
	}
	if err := queue.CanConvertToTicket(appointment); err != nil {
		return queue.Appointment{}, queue.Ticket{}, err
	}

	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	userID := ""
	if appointment.UserID != nil {
		userID = *appointment.UserID
	}
	ticket, err := s.tickets.CreateTicket(ctx, queue.CreateTicketInput{
		AgencyID:    appointment.AgencyID,
		ServiceID:   appointment.ServiceID,
		ClientName:  appointment.ClientName,
		ClientPhone: appointment.ClientPhone,
		UserID:      userID,
		Priority:    queue.PriorityPriority,
		CreatedAt:   at,
	})
	if err != nil {
		return queue.Appointment{}, queue.Ticket{}, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'in_progress', ticket_id = $2, handled_by = $3
		WHERE appointment_id = $1 AND ticket_id IS NULL
		RETURNING `+appointmentColumns+`
	`, appointment.AppointmentID, ticket.TicketID, nullIfEmpty(input.AgentID))
	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Appointment{}, queue.Ticket{}, queue.ErrAlreadyConverted
		}
		return queue.Appointment{}, queue.Ticket{}, err
	}
	return updated, ticket, nil
}

func (s *AppointmentStore) classifyAppointmentError(ctx context.Context, appointmentID string) error {
	var status string
	row := s.pool.QueryRow(ctx, `
		SELECT status FROM appointments WHERE appointment_id = $1
	`, appointmentID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.ErrAppointmentNotFound
		}
		return err
	}
	return queue.ErrInvalidState
}

func scanAppointment(row rowScanner) (queue.Appointment, error) {
	var a queue.Appointment
	var userID, clientEmail, notes, reason, handledBy, ticketID sql.NullString
	var confirmedAt, completedAt, cancelledAt sql.NullTime
	if err := row.Scan(&a.AppointmentID, &userID, &a.ClientName, &a.ClientPhone, &clientEmail, &a.AgencyID,
		&a.ServiceID, &a.Date, &a.Time, &a.ConfirmationCode, &a.Status, &notes,
		&confirmedAt, &completedAt, &cancelledAt, &reason, &handledBy, &ticketID, &a.CreatedAt); err != nil {
		return queue.Appointment{}, err
	}
	a.UserID = nullStringPtr(userID)
	a.ClientEmail = nullString(clientEmail)
	a.Notes = nullString(notes)
	a.ConfirmedAt = nullTimePtr(confirmedAt)
	a.CompletedAt = nullTimePtr(completedAt)
	a.CancelledAt = nullTimePtr(cancelledAt)
	a.CancellationReason = nullString(reason)
	a.HandledBy = nullStringPtr(handledBy)
	a.TicketID = nullStringPtr(ticketID)
	return a, nil
}
