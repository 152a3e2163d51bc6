package operations

import "time"

const (
	EquipmentMeter       = "compteur"
	EquipmentTransformer = "transformateur"
	EquipmentBreaker     = "disjoncteur"
	EquipmentOther       = "autre"

	StatusActive      = "actif"
	StatusInactive    = "inactif"
	StatusMaintenance = "maintenance"
	StatusFaulty      = "defaillant"
)

type Equipment struct {
	EquipmentID      string     `json:"equipment_id"`
	SiteID           string     `json:"site_id"`
	EquipmentType    string     `json:"equipment_type"`
	SerialNumber     string     `json:"serial_number"`
	Reference        string     `json:"reference"`
	Status           string     `json:"status"`
	InstallationDate string     `json:"installation_date"`
	LastMaintenance  *string    `json:"last_maintenance,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Meter struct {
	MeterID       string    `json:"meter_id"`
	EquipmentID   string    `json:"equipment_id"`
	MeterNumber   string    `json:"meter_number"`
	Status        string    `json:"status"`
	ServiceActive bool      `json:"service_active"`
	CreatedAt     time.Time `json:"created_at"`
}

type MeterReading struct {
	ReadingID    string    `json:"reading_id"`
	MeterID      string    `json:"meter_id"`
	ReadingDate  string    `json:"reading_date"`
	ReadingValue float64   `json:"reading_value"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	InterventionMaintenance  = "maintenance"
	InterventionRepair       = "reparation"
	InterventionInstallation = "installation"
	InterventionInspection   = "inspection"

	InterventionPlanned   = "planifiee"
	InterventionOngoing   = "en_cours"
	InterventionCompleted = "completee"
	InterventionCancelled = "annulee"
)

type Intervention struct {
	InterventionID   string     `json:"intervention_id"`
	SiteID           string     `json:"site_id"`
	InterventionType string     `json:"intervention_type"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	ScheduledDate    string     `json:"scheduled_date"`
	CompletedDate    *string    `json:"completed_date,omitempty"`
	AssignedTo       *string    `json:"assigned_to,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
