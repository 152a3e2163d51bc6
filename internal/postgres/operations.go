package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/operations"
)

type OperationsStore struct {
	pool *pgxpool.Pool
}

func NewOperationsStore(pool *pgxpool.Pool) *OperationsStore {
	return &OperationsStore{pool: pool}
}

const equipmentColumns = `equipment_id, site_id, equipment_type, serial_number, reference, status,
	installation_date, last_maintenance, created_at`

const meterColumns = `meter_id, equipment_id, meter_number, status, service_active, created_at`

func (s *OperationsStore) CreateEquipment(ctx context.Context, input operations.CreateEquipmentInput) (operations.Equipment, error) {
	equipmentID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO equipment (equipment_id, site_id, equipment_type, serial_number, reference, status, installation_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING `+equipmentColumns+`
	`, equipmentID, input.SiteID, input.EquipmentType, input.SerialNumber, nullIfEmpty(input.Reference),
		operations.StatusActive, input.InstallationDate)
	equipment, err := scanEquipment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return operations.Equipment{}, operations.ErrDuplicateSerial
		}
		return operations.Equipment{}, err
	}
	return equipment, nil
}

func (s *OperationsStore) GetEquipment(ctx context.Context, equipmentID string) (operations.Equipment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment
		WHERE equipment_id = $1
	`, equipmentID)
	equipment, err := scanEquipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return operations.Equipment{}, operations.ErrEquipmentNotFound
		}
		return operations.Equipment{}, err
	}
	return equipment, nil
}

func (s *OperationsStore) ListEquipment(ctx context.Context, siteID string) ([]operations.Equipment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment
		WHERE site_id = $1
		ORDER BY created_at ASC
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []operations.Equipment
	for rows.Next() {
		equipment, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, equipment)
	}
	return out, rows.Err()
}

func (s *OperationsStore) CreateMeter(ctx context.Context, input operations.CreateMeterInput) (operations.Meter, error) {
	meterID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO meters (meter_id, equipment_id, meter_number, status, service_active, created_at)
		VALUES ($1,$2,$3,$4,TRUE,NOW())
		RETURNING `+meterColumns+`
	`, meterID, input.EquipmentID, input.MeterNumber, operations.StatusActive)
	meter, err := scanMeter(row)
	if err != nil {
		if isUniqueViolation(err) {
			return operations.Meter{}, operations.ErrDuplicateSerial
		}
		return operations.Meter{}, err
	}
	return meter, nil
}

func (s *OperationsStore) GetMeter(ctx context.Context, meterID string) (operations.Meter, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+meterColumns+`
		FROM meters
		WHERE meter_id = $1
	`, meterID)
	meter, err := scanMeter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return operations.Meter{}, operations.ErrMeterNotFound
		}
		return operations.Meter{}, err
	}
	return meter, nil
}

func (s *OperationsStore) ListMetersBySite(ctx context.Context, siteID string, serviceActive *bool) ([]operations.Meter, error) {
	query := `
		SELECT m.meter_id, m.equipment_id, m.meter_number, m.status, m.service_active, m.created_at
		FROM meters m
		JOIN equipment e ON e.equipment_id = m.equipment_id
		WHERE e.site_id = $1
	`
	args := []interface{}{siteID}
	if serviceActive != nil {
		args = append(args, *serviceActive)
		query += fmt.Sprintf(" AND m.service_active = $%d", len(args))
	}
	query += " ORDER BY m.meter_number ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []operations.Meter
	for rows.Next() {
		meter, err := scanMeter(rows)
		if err != nil {
			return nil, err
		}
		meters = append(meters, meter)
	}
	return meters, rows.Err()
}

func (s *OperationsStore) DeactivateService(ctx context.Context, meterID string) (operations.Meter, error) {
	return s.setServiceActive(ctx, meterID, false)
}

func (s *OperationsStore) ActivateService(ctx context.Context, meterID string) (operations.Meter, error) {
	return s.setServiceActive(ctx, meterID, true)
}

func (s *OperationsStore) setServiceActive(ctx context.Context, meterID string, active bool) (operations.Meter, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE meters
		SET service_active = $2
		WHERE meter_id = $1
		RETURNING `+meterColumns+`
	`, meterID, active)
	meter, err := scanMeter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return operations.Meter{}, operations.ErrMeterNotFound
		}
		return operations.Meter{}, err
	}
	return meter, nil
}

func (s *OperationsStore) CreateReading(ctx context.Context, input operations.CreateReadingInput) (operations.MeterReading, error) {
	readingID := uuid.NewString()
	var reading operations.MeterReading
	var notes sql.NullString
	row := s.pool.QueryRow(ctx, `
		INSERT INTO meter_readings (reading_id, meter_id, reading_date, reading_value, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		RETURNING reading_id, meter_id, reading_date, reading_value, notes, created_at
	`, readingID, input.MeterID, input.ReadingDate, input.ReadingValue, nullIfEmpty(input.Notes))
	if err := row.Scan(&reading.ReadingID, &reading.MeterID, &reading.ReadingDate, &reading.ReadingValue, &notes, &reading.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return operations.MeterReading{}, operations.ErrDuplicateReading
		}
		return operations.MeterReading{}, err
	}
	reading.Notes = nullString(notes)
	return reading, nil
}

func (s *OperationsStore) ListReadings(ctx context.Context, meterID string) ([]operations.MeterReading, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reading_id, meter_id, reading_date, reading_value, notes, created_at
		FROM meter_readings
		WHERE meter_id = $1
		ORDER BY reading_date DESC
	`, meterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []operations.MeterReading
	for rows.Next() {
		var reading operations.MeterReading
		var notes sql.NullString
		if err := rows.Scan(&reading.ReadingID, &reading.MeterID, &reading.ReadingDate, &reading.ReadingValue, &notes, &reading.CreatedAt); err != nil {
			return nil, err
		}
		reading.Notes = nullString(notes)
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

const interventionColumns = `intervention_id, site_id, intervention_type, description, status,
	scheduled_date, completed_date, assigned_to, created_at`

func (s *OperationsStore) CreateIntervention(ctx context.Context, input operations.CreateInterventionInput) (operations.Intervention, error) {
	interventionID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO interventions (intervention_id, site_id, intervention_type, description, status, scheduled_date, assigned_to, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING `+interventionColumns+`
	`, interventionID, input.SiteID, input.InterventionType, input.Description,
		operations.InterventionPlanned, input.ScheduledDate, nullIfEmpty(input.AssignedTo))
	return scanIntervention(row)
}

func (s *OperationsStore) ListInterventions(ctx context.Context, siteID, status string) ([]operations.Intervention, error) {
	query := `
		SELECT ` + interventionColumns + `
		FROM interventions
		WHERE 1=1
	`
	var args []interface{}
	if siteID != "" {
		args = append(args, siteID)
		query += fmt.Sprintf(" AND site_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY scheduled_date ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interventions []operations.Intervention
	for rows.Next() {
		intervention, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		interventions = append(interventions, intervention)
	}
	return interventions, rows.Err()
}

func (s *OperationsStore) UpdateInterventionStatus(ctx context.Context, interventionID, status, completedDate string) (operations.Intervention, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE interventions
		SET status = $2, completed_date = $3
		WHERE intervention_id = $1
		RETURNING `+interventionColumns+`
	`, interventionID, status, nullIfEmpty(completedDate))
	intervention, err := scanIntervention(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return operations.Intervention{}, operations.ErrInterventionNotFound
		}
		return operations.Intervention{}, err
	}
	return intervention, nil
}

func scanEquipment(row rowScanner) (operations.Equipment, error) {
	var equipment operations.Equipment
	var reference, lastMaintenance sql.NullString
	if err := row.Scan(&equipment.EquipmentID, &equipment.SiteID, &equipment.EquipmentType, &equipment.SerialNumber,
		&reference, &equipment.Status, &equipment.InstallationDate, &lastMaintenance, &equipment.CreatedAt); err != nil {
		return operations.Equipment{}, err
	}
	equipment.Reference = nullString(reference)
	equipment.LastMaintenance = nullStringPtr(lastMaintenance)
	return equipment, nil
}

func scanMeter(row rowScanner) (operations.Meter, error) {
	var meter operations.Meter
	if err := row.Scan(&meter.MeterID, &meter.EquipmentID, &meter.MeterNumber, &meter.Status, &meter.ServiceActive, &meter.CreatedAt); err != nil {
		return operations.Meter{}, err
	}
	return meter, nil
}

func scanIntervention(row rowScanner) (operations.Intervention, error) {
	var intervention operations.Intervention
	var completedDate, assignedTo sql.NullString
	if err := row.Scan(&intervention.InterventionID, &intervention.SiteID, &intervention.InterventionType,
		&intervention.Description, &intervention.Status, &intervention.ScheduledDate, &completedDate, &assignedTo, &intervention.CreatedAt); err != nil {
		return operations.Intervention{}, err
	}
	intervention.CompletedDate = nullStringPtr(completedDate)
	intervention.AssignedTo = nullStringPtr(assignedTo)
	return intervention, nil
}
