package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/directory"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/queue"
)

const ticketNumberPad = 3

// defaultServiceMinutes feeds the wait estimate when a ticket has no service.
const defaultServiceMinutes = 15

type QueueStore struct {
	pool *pgxpool.Pool
}

func NewQueueStore(pool *pgxpool.Pool) *QueueStore {
	return &QueueStore{pool: pool}
}

const ticketColumns = `ticket_id, ticket_number, agency_id, service_id, client_name, client_phone, user_id,
	status, priority, date, created_at, called_at, served_at, completed_at, counter_id, served_by,
	estimated_wait, queue_position, notes`

// priorityOrder sorts vip before priority before normal, then FIFO.
const priorityOrder = `CASE priority WHEN 'vip' THEN 0 WHEN 'priority' THEN 1 ELSE 2 END, created_at ASC`

func (s *QueueStore) CreateTicket(ctx context.Context, input queue.CreateTicketInput) (queue.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	date := createdAt.Format("2006-01-02")

	prefix := "X"
	duration := defaultServiceMinutes
	if input.ServiceID != "" {
		var code string
		var minutes int
		row := tx.QueryRow(ctx, `
			SELECT code, duration_minutes
			FROM service_types
			WHERE service_id = $1 AND active
		`, input.ServiceID)
		if err = row.Scan(&code, &minutes); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = directory.ErrServiceNotFound
			}
			return queue.Ticket{}, err
		}
		if code != "" {
			prefix = strings.ToUpper(code[:1])
		}
		if minutes > 0 {
			duration = minutes
		}
	}

	seq, err := nextTicketNumber(ctx, tx, input.AgencyID, date, prefix)
	if err != nil {
		return queue.Ticket{}, err
	}
	number := fmt.Sprintf("%s%0*d", prefix, ticketNumberPad, seq)

	var waiting int
	row := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tickets
		WHERE agency_id = $1 AND date = $2 AND status = 'waiting'
	`, input.AgencyID, date)
	if err = row.Scan(&waiting); err != nil {
		return queue.Ticket{}, err
	}
	position := waiting + 1
	estimatedWait := duration * position

	priority := input.Priority
	if priority == "" {
		priority = queue.PriorityNormal
	}

	ticketID := uuid.NewString()
	row = tx.QueryRow(ctx, `
		INSERT INTO tickets (
			ticket_id, ticket_number, agency_id, service_id, client_name, client_phone, user_id,
			status, priority, date, created_at, estimated_wait, queue_position
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING `+ticketColumns+`
	`, ticketID, number, input.AgencyID, nullIfEmpty(input.ServiceID), nullIfEmpty(input.ClientName),
		nullIfEmpty(input.ClientPhone), nullIfEmpty(input.UserID), queue.StatusWaiting, priority,
		date, createdAt, estimatedWait, position)
	ticket, err := scanTicket(row)
	if err != nil {
		return queue.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return queue.Ticket{}, err
	}
	return ticket, nil
}

func (s *QueueStore) GetTicket(ctx context.Context, agencyID, ticketID string) (queue.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE ticket_id = $1 AND agency_id = $2
	`, ticketID, agencyID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Ticket{}, queue.ErrTicketNotFound
		}
		return queue.Ticket{}, err
	}
	return ticket, nil
}

func (s *QueueStore) FindTicketByNumber(ctx context.Context, agencyID, number, date string) (queue.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE agency_id = $1 AND ticket_number = $2 AND date = $3
	`, agencyID, number, date)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Ticket{}, queue.ErrTicketNotFound
		}
		return queue.Ticket{}, err
	}
	return ticket, nil
}

func (s *QueueStore) ListTickets(ctx context.Context, agencyID, date string, statuses []string) ([]queue.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE agency_id = $1 AND date = $2
	`
	args := []interface{}{agencyID, date}
	if len(statuses) > 0 {
		query += " AND status = ANY($3)"
		args = append(args, statuses)
	}
	query += " ORDER BY " + priorityOrder

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []queue.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// WaitingPosition counts the waiting tickets ahead of the given one under the
// priority-then-FIFO ordering, including the ticket itself.
func (s *QueueStore) WaitingPosition(ctx context.Context, ticket queue.Ticket) (int, error) {
	if ticket.Status != queue.StatusWaiting {
		return 0, nil
	}
	var position int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tickets
		WHERE agency_id = $1 AND date = $2 AND status = 'waiting'
		  AND (
			CASE priority WHEN 'vip' THEN 0 WHEN 'priority' THEN 1 ELSE 2 END < $3
			OR (CASE priority WHEN 'vip' THEN 0 WHEN 'priority' THEN 1 ELSE 2 END = $3 AND created_at <= $4)
		  )
	`, ticket.AgencyID, ticket.Date, queue.PriorityRank(ticket.Priority), ticket.CreatedAt)
	if err := row.Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}

func (s *QueueStore) CallNext(ctx context.Context, input queue.CallNextInput) (queue.CallNextResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.CallNextResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counter, err := lockCounter(ctx, tx, input.AgencyID, input.CounterID)
	if err != nil {
		return queue.CallNextResult{}, err
	}
	if !counter.Active || counter.Status == queue.CounterClosed {
		err = queue.ErrCounterUnavailable
		return queue.CallNextResult{}, err
	}
	if counter.CurrentAgentID == nil || *counter.CurrentAgentID != input.AgentID {
		err = queue.ErrNotCounterAgent
		return queue.CallNextResult{}, err
	}

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}
	date := calledAt.Format("2006-01-02")

	result := queue.CallNextResult{}

	// A ticket still held by the counter is closed out before the next call.
	if counter.CurrentTicketID != nil {
		row := tx.QueryRow(ctx, `
			UPDATE tickets
			SET status = 'completed', completed_at = $2
			WHERE ticket_id = $1 AND status IN ('called','serving')
			RETURNING `+ticketColumns+`
		`, *counter.CurrentTicketID, calledAt)
		completed, scanErr := scanTicket(row)
		if scanErr != nil && !errors.Is(scanErr, pgx.ErrNoRows) {
			err = scanErr
			return queue.CallNextResult{}, err
		}
		if scanErr == nil {
			result.AutoCompleted = &completed
		}
	}

	row := tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE agency_id = $1 AND date = $2 AND status = 'waiting'
		  AND (
			service_id IS NULL
			OR NOT EXISTS (SELECT 1 FROM counter_services cs WHERE cs.counter_id = $3)
			OR EXISTS (SELECT 1 FROM counter_services cs WHERE cs.counter_id = $3 AND cs.service_id = tickets.service_id)
		  )
		ORDER BY `+priorityOrder+`
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, input.AgencyID, date, input.CounterID)
	next, err := scanTicket(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return queue.CallNextResult{}, err
		}
		// Empty queue is a normal outcome: the counter goes back to
		// available instead of surfacing an error.
		counter, err = updateCounterState(ctx, tx, input.CounterID, queue.CounterAvailable, nil)
		if err != nil {
			return queue.CallNextResult{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return queue.CallNextResult{}, err
		}
		result.Empty = true
		result.Counter = counter
		return result, nil
	}

	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'called', called_at = $2, counter_id = $3, served_by = $4
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, next.TicketID, calledAt, input.CounterID, input.AgentID)
	called, err := scanTicket(row)
	if err != nil {
		return queue.CallNextResult{}, err
	}

	counter, err = updateCounterState(ctx, tx, input.CounterID, queue.CounterBusy, &called.TicketID)
	if err != nil {
		return queue.CallNextResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return queue.CallNextResult{}, err
	}
	result.Ticket = called
	result.Counter = counter
	return result, nil
}

func (s *QueueStore) StartService(ctx context.Context, input queue.CounterActionInput) (queue.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counter, err := lockCounter(ctx, tx, input.AgencyID, input.CounterID)
	if err != nil {
		return queue.Ticket{}, err
	}
	if counter.CurrentAgentID == nil || *counter.CurrentAgentID != input.AgentID {
		err = queue.ErrNotCounterAgent
		return queue.Ticket{}, err
	}
	if counter.CurrentTicketID == nil {
		err = queue.ErrNoCurrentTicket
		return queue.Ticket{}, err
	}

	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'serving', served_at = $2
		WHERE ticket_id = $1 AND status = 'called'
		RETURNING `+ticketColumns+`
	`, *counter.CurrentTicketID, at)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = queue.ErrInvalidState
		}
		return queue.Ticket{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return queue.Ticket{}, err
	}
	return ticket, nil
}

func (s *QueueStore) CompleteService(ctx context.Context, input queue.CounterActionInput) (queue.Ticket, queue.Counter, error) {
	return s.finishCurrent(ctx, input, queue.StatusCompleted)
}

func (s *QueueStore) MarkNoShow(ctx context.Context, input queue.CounterActionInput) (queue.Ticket, queue.Counter, error) {
	return s.finishCurrent(ctx, input, queue.StatusNoShow)
}

func (s *QueueStore) finishCurrent(ctx context.Context, input queue.CounterActionInput, status string) (queue.Ticket, queue.Counter, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Ticket{}, queue.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counter, err := lockCounter(ctx, tx, input.AgencyID, input.CounterID)
	if err != nil {
		return queue.Ticket{}, queue.Counter{}, err
	}
	if counter.CurrentAgentID == nil || *counter.CurrentAgentID != input.AgentID {
		err = queue.ErrNotCounterAgent
		return queue.Ticket{}, queue.Counter{}, err
	}
	if counter.CurrentTicketID == nil {
		err = queue.ErrNoCurrentTicket
		return queue.Ticket{}, queue.Counter{}, err
	}

	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	allowed := "('called','serving')"
	if status == queue.StatusNoShow {
		allowed = "('waiting','called')"
	}
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2, completed_at = $3
		WHERE ticket_id = $1 AND status IN `+allowed+`
		RETURNING `+ticketColumns+`
	`, *counter.CurrentTicketID, status, at)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = queue.ErrInvalidState
		}
		return queue.Ticket{}, queue.Counter{}, err
	}

	counter, err = updateCounterState(ctx, tx, input.CounterID, queue.CounterAvailable, nil)
	if err != nil {
		return queue.Ticket{}, queue.Counter{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return queue.Ticket{}, queue.Counter{}, err
	}
	return ticket, counter, nil
}

func (s *QueueStore) CancelTicket(ctx context.Context, input queue.TicketActionInput) (queue.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'cancelled', completed_at = $3,
		    notes = CASE WHEN $4 = '' THEN notes ELSE COALESCE(notes,'') || $4 END
		WHERE ticket_id = $1 AND agency_id = $2 AND status IN ('waiting','called')
		RETURNING `+ticketColumns+`
	`, input.TicketID, input.AgencyID, at, input.Reason)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = s.classifyTicketError(ctx, input.AgencyID, input.TicketID)
		}
		return queue.Ticket{}, err
	}

	if ticket.CounterID != nil {
		if _, err = updateCounterState(ctx, tx, *ticket.CounterID, queue.CounterAvailable, nil); err != nil {
			return queue.Ticket{}, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return queue.Ticket{}, err
	}
	return ticket, nil
}

func (s *QueueStore) RecallTicket(ctx context.Context, input queue.TicketActionInput) (queue.Ticket, error) {
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE tickets
		SET called_at = $3
		WHERE ticket_id = $1 AND agency_id = $2 AND status = 'called'
		RETURNING `+ticketColumns+`
	`, input.TicketID, input.AgencyID, at)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Ticket{}, s.classifyTicketError(ctx, input.AgencyID, input.TicketID)
		}
		return queue.Ticket{}, err
	}
	return ticket, nil
}

// TransferTicket puts the ticket back in the waiting line for another
// counter, releasing the source counter when it held the ticket.
func (s *QueueStore) TransferTicket(ctx context.Context, input queue.TicketActionInput) (queue.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var previousCounter sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT counter_id
		FROM tickets
		WHERE ticket_id = $1 AND agency_id = $2
		FOR UPDATE
	`, input.TicketID, input.AgencyID)
	if err = row.Scan(&previousCounter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = queue.ErrTicketNotFound
		}
		return queue.Ticket{}, err
	}

	note := ""
	if input.CounterName != "" {
		note = "transfert vers " + input.CounterName + "; "
	}
	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'waiting', counter_id = NULL, served_by = NULL, called_at = NULL, served_at = NULL,
		    notes = COALESCE(notes,'') || $3
		WHERE ticket_id = $1 AND agency_id = $2 AND status IN ('waiting','called','serving')
		RETURNING `+ticketColumns+`
	`, input.TicketID, input.AgencyID, note)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = queue.ErrInvalidState
		}
		return queue.Ticket{}, err
	}

	if previousCounter.Valid {
		if _, err = updateCounterState(ctx, tx, previousCounter.String, queue.CounterAvailable, nil); err != nil {
			return queue.Ticket{}, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return queue.Ticket{}, err
	}
	return ticket, nil
}

func (s *QueueStore) CreateCounter(ctx context.Context, input queue.CreateCounterInput) (queue.Counter, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return queue.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counterID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO counters (counter_id, agency_id, number, name, status, active)
		VALUES ($1,$2,$3,$4,'closed',TRUE)
	`, counterID, input.AgencyID, input.Number, nullIfEmpty(input.Name))
	if err != nil {
		return queue.Counter{}, err
	}
	for _, serviceID := range input.ServiceIDs {
		if _, err = tx.Exec(ctx, `
			INSERT INTO counter_services (counter_id, service_id)
			VALUES ($1, $2)
		`, counterID, serviceID); err != nil {
			return queue.Counter{}, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return queue.Counter{}, err
	}
	return s.GetCounter(ctx, input.AgencyID, counterID)
}

func (s *QueueStore) GetCounter(ctx context.Context, agencyID, counterID string) (queue.Counter, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT counter_id, agency_id, number, name, status, active, current_agent_id, current_ticket_id
		FROM counters
		WHERE counter_id = $1 AND agency_id = $2
	`, counterID, agencyID)
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Counter{}, queue.ErrCounterNotFound
		}
		return queue.Counter{}, err
	}
	counter.ServiceIDs, err = s.counterServices(ctx, counterID)
	if err != nil {
		return queue.Counter{}, err
	}
	return counter, nil
}

func (s *QueueStore) ListCounters(ctx context.Context, agencyID string, activeOnly bool) ([]queue.Counter, error) {
	query := `
		SELECT counter_id, agency_id, number, name, status, active, current_agent_id, current_ticket_id
		FROM counters
		WHERE agency_id = $1
	`
	if activeOnly {
		query += " AND active"
	}
	query += " ORDER BY number ASC"

	rows, err := s.pool.Query(ctx, query, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []queue.Counter
	for rows.Next() {
		counter, err := scanCounter(rows)
		if err != nil {
			return nil, err
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range counters {
		counters[i].ServiceIDs, err = s.counterServices(ctx, counters[i].CounterID)
		if err != nil {
			return nil, err
		}
	}
	return counters, nil
}

func (s *QueueStore) UpdateCounterStatus(ctx context.Context, agencyID, counterID, status string) (queue.Counter, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE counters
		SET status = $3
		WHERE counter_id = $1 AND agency_id = $2
		RETURNING counter_id, agency_id, number, name, status, active, current_agent_id, current_ticket_id
	`, counterID, agencyID, status)
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Counter{}, queue.ErrCounterNotFound
		}
		return queue.Counter{}, err
	}
	counter.ServiceIDs, err = s.counterServices(ctx, counterID)
	if err != nil {
		return queue.Counter{}, err
	}
	return counter, nil
}

func (s *QueueStore) AssignAgent(ctx context.Context, agencyID, counterID, agentID string) (queue.Counter, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE counters
		SET current_agent_id = $3, status = 'available'
		WHERE counter_id = $1 AND agency_id = $2 AND active
		RETURNING counter_id, agency_id, number, name, status, active, current_agent_id, current_ticket_id
	`, counterID, agencyID, nullIfEmpty(agentID))
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Counter{}, queue.ErrCounterNotFound
		}
		return queue.Counter{}, err
	}
	counter.ServiceIDs, err = s.counterServices(ctx, counterID)
	if err != nil {
		return queue.Counter{}, err
	}
	return counter, nil
}

func (s *QueueStore) Display(ctx context.Context, agencyID string) (queue.DisplayBoard, error) {
	board := queue.DisplayBoard{Now: time.Now().UTC()}
	today := board.Now.Format("2006-01-02")

	row := s.pool.QueryRow(ctx, `
		SELECT name FROM agencies WHERE agency_id = $1
	`, agencyID)
	if err := row.Scan(&board.AgencyName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.DisplayBoard{}, queue.ErrCounterNotFound
		}
		return queue.DisplayBoard{}, err
	}

	counters, err := s.ListCounters(ctx, agencyID, true)
	if err != nil {
		return queue.DisplayBoard{}, err
	}
	board.Counters = counters

	waiting, err := s.ListTickets(ctx, agencyID, today, []string{queue.StatusWaiting})
	if err != nil {
		return queue.DisplayBoard{}, err
	}
	board.Waiting = waiting
	board.TotalWaiting = len(waiting)

	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE agency_id = $1 AND date = $2 AND status IN ('called','serving')
		ORDER BY called_at DESC
		LIMIT 5
	`, agencyID, today)
	if err != nil {
		return queue.DisplayBoard{}, err
	}
	defer rows.Close()
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return queue.DisplayBoard{}, err
		}
		board.LastCalled = append(board.LastCalled, ticket)
	}
	if err := rows.Err(); err != nil {
		return queue.DisplayBoard{}, err
	}

	stats, err := s.Stats(ctx, agencyID, today)
	if err != nil {
		return queue.DisplayBoard{}, err
	}
	board.AvgWaitMins = stats.AverageWaitMins
	return board, nil
}

func (s *QueueStore) Stats(ctx context.Context, agencyID, date string) (queue.Stats, error) {
	var stats queue.Stats
	row := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'serving'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*),
			COALESCE(AVG(EXTRACT(EPOCH FROM (called_at - created_at)) / 60)
				FILTER (WHERE status = 'completed' AND called_at IS NOT NULL), 0)
		FROM tickets
		WHERE agency_id = $1 AND date = $2
	`, agencyID, date)
	if err := row.Scan(&stats.WaitingCount, &stats.ServingCount, &stats.CompletedToday, &stats.TotalToday, &stats.AverageWaitMins); err != nil {
		return queue.Stats{}, err
	}
	return stats, nil
}

// classifyTicketError distinguishes a missing ticket from one in the wrong
// state after a guarded UPDATE matched no rows.
func (s *QueueStore) classifyTicketError(ctx context.Context, agencyID, ticketID string) error {
	var status string
	row := s.pool.QueryRow(ctx, `
		SELECT status FROM tickets WHERE ticket_id = $1 AND agency_id = $2
	`, ticketID, agencyID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.ErrTicketNotFound
		}
		return err
	}
	return queue.ErrInvalidState
}

// nextTicketNumber allocates the next sequence value for the (agency, date,
// prefix) counter row. The upsert takes a row lock, so two concurrent
// creations can never see the same number.
func nextTicketNumber(ctx context.Context, tx pgx.Tx, agencyID, date, prefix string) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO ticket_counters (agency_id, date, prefix, next_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (agency_id, date, prefix)
		DO UPDATE SET next_number = ticket_counters.next_number + 1
		RETURNING next_number
	`, agencyID, date, prefix)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func lockCounter(ctx context.Context, tx pgx.Tx, agencyID, counterID string) (queue.Counter, error) {
	row := tx.QueryRow(ctx, `
		SELECT counter_id, agency_id, number, name, status, active, current_agent_id, current_ticket_id
		FROM counters
		WHERE counter_id = $1 AND agency_id = $2
		FOR UPDATE
	`, counterID, agencyID)
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Counter{}, queue.ErrCounterNotFound
		}
		return queue.Counter{}, err
	}
	return counter, nil
}

func updateCounterState(ctx context.Context, tx pgx.Tx, counterID, status string, ticketID *string) (queue.Counter, error) {
	row := tx.QueryRow(ctx, `
		UPDATE counters
		SET status = $2, current_ticket_id = $3
		WHERE counter_id = $1
		RETURNING counter_id, agency_id, number, name, status, active, current_agent_id, current_ticket_id
	`, counterID, status, ticketID)
	return scanCounter(row)
}

func scanTicket(row rowScanner) (queue.Ticket, error) {
	var ticket queue.Ticket
	var serviceID, clientName, clientPhone, userID, counterID, servedBy, notes sql.NullString
	var calledAt, servedAt, completedAt sql.NullTime
	if err := row.Scan(&ticket.TicketID, &ticket.TicketNumber, &ticket.AgencyID, &serviceID, &clientName,
		&clientPhone, &userID, &ticket.Status, &ticket.Priority, &ticket.Date, &ticket.CreatedAt,
		&calledAt, &servedAt, &completedAt, &counterID, &servedBy,
		&ticket.EstimatedWait, &ticket.QueuePosition, &notes); err != nil {
		return queue.Ticket{}, err
	}
	ticket.ServiceID = nullString(serviceID)
	ticket.ClientName = nullString(clientName)
	ticket.ClientPhone = nullString(clientPhone)
	ticket.UserID = nullStringPtr(userID)
	ticket.CalledAt = nullTimePtr(calledAt)
	ticket.ServedAt = nullTimePtr(servedAt)
	ticket.CompletedAt = nullTimePtr(completedAt)
	ticket.CounterID = nullStringPtr(counterID)
	ticket.ServedBy = nullStringPtr(servedBy)
	ticket.Notes = nullString(notes)
	return ticket, nil
}

func scanCounter(row rowScanner) (queue.Counter, error) {
	var counter queue.Counter
	var name, agentID, ticketID sql.NullString
	if err := row.Scan(&counter.CounterID, &counter.AgencyID, &counter.Number, &name, &counter.Status,
		&counter.Active, &agentID, &ticketID); err != nil {
		return queue.Counter{}, err
	}
	counter.Name = nullString(name)
	counter.CurrentAgentID = nullStringPtr(agentID)
	counter.CurrentTicketID = nullStringPtr(ticketID)
	return counter, nil
}

func (s *QueueStore) counterServices(ctx context.Context, counterID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service_id
		FROM counter_services
		WHERE counter_id = $1
		ORDER BY service_id ASC
	`, counterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []string
	for rows.Next() {
		var serviceID string
		if err := rows.Scan(&serviceID); err != nil {
			return nil, err
		}
		services = append(services, serviceID)
	}
	return services, rows.Err()
}
