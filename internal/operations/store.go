package operations

import (
	"context"
	"errors"
)

var (
	ErrEquipmentNotFound    = errors.New("equipment not found")
	ErrMeterNotFound        = errors.New("meter not found")
	ErrInterventionNotFound = errors.New("intervention not found")
	ErrDuplicateSerial      = errors.New("duplicate serial number")
	ErrDuplicateReading     = errors.New("reading already recorded for this date")
)

type CreateEquipmentInput struct {
	SiteID           string
	EquipmentType    string
	SerialNumber     string
	Reference        string
	InstallationDate string
}

type CreateMeterInput struct {
	EquipmentID string
	MeterNumber string
}

type CreateReadingInput struct {
	MeterID      string
	ReadingDate  string
	ReadingValue float64
	Notes        string
}

type CreateInterventionInput struct {
	SiteID           string
	InterventionType string
	Description      string
	ScheduledDate    string
	AssignedTo       string
}

type Store interface {
	CreateEquipment(ctx context.Context, input CreateEquipmentInput) (Equipment, error)
	GetEquipment(ctx context.Context, equipmentID string) (Equipment, error)
	ListEquipment(ctx context.Context, siteID string) ([]Equipment, error)

	CreateMeter(ctx context.Context, input CreateMeterInput) (Meter, error)
	GetMeter(ctx context.Context, meterID string) (Meter, error)
	// ListMetersBySite returns the meters attached to equipment at the site,
	// optionally filtered by service_active. The filter is how deactivation
	// and reactivation stay idempotent: already-toggled meters never match.
	ListMetersBySite(ctx context.Context, siteID string, serviceActive *bool) ([]Meter, error)
	DeactivateService(ctx context.Context, meterID string) (Meter, error)
	ActivateService(ctx context.Context, meterID string) (Meter, error)

	CreateReading(ctx context.Context, input CreateReadingInput) (MeterReading, error)
	ListReadings(ctx context.Context, meterID string) ([]MeterReading, error)

	CreateIntervention(ctx context.Context, input CreateInterventionInput) (Intervention, error)
	ListInterventions(ctx context.Context, siteID, status string) ([]Intervention, error)
	UpdateInterventionStatus(ctx context.Context, interventionID, status, completedDate string) (Intervention, error)
}
