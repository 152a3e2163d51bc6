package directory

import "time"

type Agency struct {
	AgencyID  string    `json:"agency_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Province  string    `json:"province"`
	Territory string    `json:"territory"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type ServiceType struct {
	ServiceID       string    `json:"service_id"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

type SystemParameter struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}
