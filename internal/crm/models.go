package crm

import "time"

const (
	ClientProspect  = "prospect"
	ClientActive    = "actif"
	ClientSuspended = "suspendu"
)

type Client struct {
	ClientID    string    `json:"client_id"`
	UserID      *string   `json:"user_id,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	AgencyID    *string   `json:"agency_id,omitempty"`
	Status      string    `json:"status"`
	Tags        string    `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Site struct {
	SiteID       string    `json:"site_id"`
	ClientID     string    `json:"client_id"`
	Name         string    `json:"name"`
	Reference    string    `json:"reference"`
	Address      string    `json:"address"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	ContractMonthly     = "mensuel"
	ContractConsumption = "consommation"
	ContractFlatRate    = "forfait"

	ContractActive    = "actif"
	ContractInactive  = "inactif"
	ContractSuspended = "suspendu"
)

type Contract struct {
	ContractID   string     `json:"contract_id"`
	ClientID     string     `json:"client_id"`
	SiteID       string     `json:"site_id"`
	ContractType string     `json:"contract_type"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Rate         float64    `json:"rate"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}
