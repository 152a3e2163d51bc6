package directory

import (
	"context"
	"errors"
)

var (
	ErrAgencyNotFound    = errors.New("agency not found")
	ErrServiceNotFound   = errors.New("service not found")
	ErrParameterNotFound = errors.New("parameter not found")
	ErrDuplicateCode     = errors.New("duplicate code")
)

type CreateAgencyInput struct {
	Code      string
	Name      string
	Province  string
	Territory string
	Address   string
	Phone     string
	Email     string
	Latitude  *float64
	Longitude *float64
}

type CreateServiceTypeInput struct {
	Name            string
	Code            string
	Description     string
	DurationMinutes int
}

type Store interface {
	CreateAgency(ctx context.Context, input CreateAgencyInput) (Agency, error)
	GetAgency(ctx context.Context, agencyID string) (Agency, error)
	ListAgencies(ctx context.Context, activeOnly bool) ([]Agency, error)
	CreateServiceType(ctx context.Context, input CreateServiceTypeInput) (ServiceType, error)
	GetServiceType(ctx context.Context, serviceID string) (ServiceType, error)
	ListServiceTypes(ctx context.Context, activeOnly bool) ([]ServiceType, error)
	ListParameters(ctx context.Context) ([]SystemParameter, error)
	SetParameter(ctx context.Context, key, value, description string) error
}
