package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/crm"
)

type CRMStore struct {
	pool *pgxpool.Pool
}

func NewCRMStore(pool *pgxpool.Pool) *CRMStore {
	return &CRMStore{pool: pool}
}

const clientColumns = `client_id, user_id, first_name, last_name, email, phone, address, agency_id, status, tags, created_at`

func (s *CRMStore) CreateClient(ctx context.Context, input crm.CreateClientInput) (crm.Client, error) {
	clientID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO clients (client_id, user_id, first_name, last_name, email, phone, address, agency_id, status, tags, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		RETURNING `+clientColumns+`
	`, clientID, nullIfEmpty(input.UserID), input.FirstName, input.LastName, input.Email,
		nullIfEmpty(input.Phone), nullIfEmpty(input.Address), nullIfEmpty(input.AgencyID), crm.ClientProspect, nullIfEmpty(input.Tags))
	client, err := scanClient(row)
	if err != nil {
		if isUniqueViolation(err) {
			return crm.Client{}, crm.ErrDuplicateEmail
		}
		return crm.Client{}, err
	}
	return client, nil
}

func (s *CRMStore) GetClient(ctx context.Context, clientID string) (crm.Client, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE client_id = $1
	`, clientID)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crm.Client{}, crm.ErrClientNotFound
		}
		return crm.Client{}, err
	}
	return client, nil
}

func (s *CRMStore) ListClients(ctx context.Context, agencyID, status string) ([]crm.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE 1=1
	`
	args := []interface{}{}
	if agencyID != "" {
		args = append(args, agencyID)
		query += " AND agency_id = $1"
	}
	if status != "" {
		args = append(args, status)
		if len(args) == 1 {
			query += " AND status = $1"
		} else {
			query += " AND status = $2"
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []crm.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func (s *CRMStore) UpdateClientStatus(ctx context.Context, clientID, status string) (crm.Client, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE clients
		SET status = $2
		WHERE client_id = $1
		RETURNING `+clientColumns+`
	`, clientID, status)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crm.Client{}, crm.ErrClientNotFound
		}
		return crm.Client{}, err
	}
	return client, nil
}

const siteColumns = `site_id, client_id, name, reference, address, contact_name, contact_phone, active, created_at`

func (s *CRMStore) CreateSite(ctx context.Context, input crm.CreateSiteInput) (crm.Site, error) {
	siteID := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sites (site_id, client_id, name, reference, address, contact_name, contact_phone, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,NOW())
		RETURNING `+siteColumns+`
	`, siteID, input.ClientID, input.Name, input.Reference, input.Address,
		nullIfEmpty(input.ContactName), nullIfEmpty(input.ContactPhone))
	site, err := scanSite(row)
	if err != nil {
		if isUniqueViolation(err) {
			return crm.Site{}, crm.ErrDuplicateReference
		}
		return crm.Site{}, err
	}
	return site, nil
}

func (s *CRMStore) GetSite(ctx context.Context, siteID string) (crm.Site, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+siteColumns+`
		FROM sites
		WHERE site_id = $1
	`, siteID)
	site, err := scanSite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crm.Site{}, crm.ErrSiteNotFound
		}
		return crm.Site{}, err
	}
	return site, nil
}

func (s *CRMStore) ListSites(ctx context.Context, clientID string) ([]crm.Site, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+siteColumns+`
		FROM sites
		WHERE client_id = $1
		ORDER BY name ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []crm.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *CRMStore) CreateContract(ctx context.Context, input crm.CreateContractInput) (crm.Contract, error) {
	contractID := uuid.NewString()
	var contract crm.Contract
	var endDate sql.NullTime
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contracts (contract_id, client_id, site_id, contract_type, start_date, end_date, rate, currency, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		RETURNING contract_id, client_id, site_id, contract_type, start_date, end_date, rate, currency, status, created_at
	`, contractID, input.ClientID, input.SiteID, input.ContractType, input.StartDate, input.EndDate, input.Rate, input.Currency, crm.ContractActive)
	if err := row.Scan(&contract.ContractID, &contract.ClientID, &contract.SiteID, &contract.ContractType,
		&contract.StartDate, &endDate, &contract.Rate, &contract.Currency, &contract.Status, &contract.CreatedAt); err != nil {
		return crm.Contract{}, err
	}
	contract.EndDate = nullTimePtr(endDate)
	return contract, nil
}

func (s *CRMStore) ListContracts(ctx context.Context, clientID string) ([]crm.Contract, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT contract_id, client_id, site_id, contract_type, start_date, end_date, rate, currency, status, created_at
		FROM contracts
		WHERE client_id = $1
		ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []crm.Contract
	for rows.Next() {
		var contract crm.Contract
		var endDate sql.NullTime
		if err := rows.Scan(&contract.ContractID, &contract.ClientID, &contract.SiteID, &contract.ContractType,
			&contract.StartDate, &endDate, &contract.Rate, &contract.Currency, &contract.Status, &contract.CreatedAt); err != nil {
			return nil, err
		}
		contract.EndDate = nullTimePtr(endDate)
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

func scanClient(row rowScanner) (crm.Client, error) {
	var client crm.Client
	var userID, phone, address, agencyID, tags sql.NullString
	if err := row.Scan(&client.ClientID, &userID, &client.FirstName, &client.LastName, &client.Email,
		&phone, &address, &agencyID, &client.Status, &tags, &client.CreatedAt); err != nil {
		return crm.Client{}, err
	}
	client.UserID = nullStringPtr(userID)
	client.Phone = nullString(phone)
	client.Address = nullString(address)
	client.AgencyID = nullStringPtr(agencyID)
	client.Tags = nullString(tags)
	return client, nil
}

func scanSite(row rowScanner) (crm.Site, error) {
	var site crm.Site
	var contactName, contactPhone sql.NullString
	if err := row.Scan(&site.SiteID, &site.ClientID, &site.Name, &site.Reference, &site.Address,
		&contactName, &contactPhone, &site.Active, &site.CreatedAt); err != nil {
		return crm.Site{}, err
	}
	site.ContactName = nullString(contactName)
	site.ContactPhone = nullString(contactPhone)
	return site, nil
}
