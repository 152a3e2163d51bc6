package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/directory"
)

type DirectoryStore struct {
	pool *pgxpool.Pool
}

func NewDirectoryStore(pool *pgxpool.Pool) *DirectoryStore {
	return &DirectoryStore{pool: pool}
}

func (s *DirectoryStore) CreateAgency(ctx context.Context, input directory.CreateAgencyInput) (directory.Agency, error) {
	agencyID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO agencies (agency_id, code, name, province, territory, address, phone, email, latitude, longitude, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE,NOW())
		RETURNING agency_id, code, name, province, territory, address, phone, email, latitude, longitude, active, created_at
	`, agencyID, input.Code, input.Name, input.Province, input.Territory, input.Address, input.Phone, input.Email, input.Latitude, input.Longitude)
	agency, err := scanAgency(row)
	if err != nil {
		if isUniqueViolation(err) {
			return directory.Agency{}, directory.ErrDuplicateCode
		}
		return directory.Agency{}, err
	}
	return agency, nil
}

func (s *DirectoryStore) GetAgency(ctx context.Context, agencyID string) (directory.Agency, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT agency_id, code, name, province, territory, address, phone, email, latitude, longitude, active, created_at
		FROM agencies
		WHERE agency_id = $1
	`, agencyID)
	agency, err := scanAgency(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return directory.Agency{}, directory.ErrAgencyNotFound
		}
		return directory.Agency{}, err
	}
	return agency, nil
}

func (s *DirectoryStore) ListAgencies(ctx context.Context, activeOnly bool) ([]directory.Agency, error) {
	query := `
		SELECT agency_id, code, name, province, territory, address, phone, email, latitude, longitude, active, created_at
		FROM agencies
	`
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY code ASC"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agencies []directory.Agency
	for rows.Next() {
		agency, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, agency)
	}
	return agencies, rows.Err()
}

func (s *DirectoryStore) CreateServiceType(ctx context.Context, input directory.CreateServiceTypeInput) (directory.ServiceType, error) {
	serviceID := uuid.NewString()
	var svc directory.ServiceType
	var description sql.NullString
	row := s.pool.QueryRow(ctx, `
		INSERT INTO service_types (service_id, name, code, description, duration_minutes, active, created_at)
		VALUES ($1,$2,$3,$4,$5,TRUE,NOW())
		RETURNING service_id, name, code, description, duration_minutes, active, created_at
	`, serviceID, input.Name, input.Code, nullIfEmpty(input.Description), input.DurationMinutes)
	if err := row.Scan(&svc.ServiceID, &svc.Name, &svc.Code, &description, &svc.DurationMinutes, &svc.Active, &svc.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return directory.ServiceType{}, directory.ErrDuplicateCode
		}
		return directory.ServiceType{}, err
	}
	svc.Description = nullString(description)
	return svc, nil
}

func (s *DirectoryStore) GetServiceType(ctx context.Context, serviceID string) (directory.ServiceType, error) {
	var svc directory.ServiceType
	var description sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT service_id, name, code, description, duration_minutes, active, created_at
		FROM service_types
		WHERE service_id = $1
	`, serviceID)
	if err := row.Scan(&svc.ServiceID, &svc.Name, &svc.Code, &description, &svc.DurationMinutes, &svc.Active, &svc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return directory.ServiceType{}, directory.ErrServiceNotFound
		}
		return directory.ServiceType{}, err
	}
	svc.Description = nullString(description)
	return svc, nil
}

func (s *DirectoryStore) ListServiceTypes(ctx context.Context, activeOnly bool) ([]directory.ServiceType, error) {
	query := `
		SELECT service_id, name, code, description, duration_minutes, active, created_at
		FROM service_types
	`
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY code ASC"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []directory.ServiceType
	for rows.Next() {
		var svc directory.ServiceType
		var description sql.NullString
		if err := rows.Scan(&svc.ServiceID, &svc.Name, &svc.Code, &description, &svc.DurationMinutes, &svc.Active, &svc.CreatedAt); err != nil {
			return nil, err
		}
		svc.Description = nullString(description)
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (s *DirectoryStore) ListParameters(ctx context.Context) ([]directory.SystemParameter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, value, description
		FROM system_parameters
		ORDER BY key ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var params []directory.SystemParameter
	for rows.Next() {
		var p directory.SystemParameter
		var description sql.NullString
		if err := rows.Scan(&p.Key, &p.Value, &description); err != nil {
			return nil, err
		}
		p.Description = nullString(description)
		params = append(params, p)
	}
	return params, rows.Err()
}

func (s *DirectoryStore) SetParameter(ctx context.Context, key, value, description string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO system_parameters (key, value, description, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
	`, key, value, nullIfEmpty(description), time.Now().UTC())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgency(row rowScanner) (directory.Agency, error) {
	var agency directory.Agency
	var latitude, longitude sql.NullFloat64
	if err := row.Scan(&agency.AgencyID, &agency.Code, &agency.Name, &agency.Province, &agency.Territory,
		&agency.Address, &agency.Phone, &agency.Email, &latitude, &longitude, &agency.Active, &agency.CreatedAt); err != nil {
		return directory.Agency{}, err
	}
	agency.Latitude = nullFloatPtr(latitude)
	agency.Longitude = nullFloatPtr(longitude)
	return agency, nil
}
