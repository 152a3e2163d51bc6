package crm

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrSiteNotFound       = errors.New("site not found")
	ErrContractNotFound   = errors.New("contract not found")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrDuplicateReference = errors.New("duplicate site reference")
)

type CreateClientInput struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	AgencyID  string
	Tags      string
}

type CreateSiteInput struct {
	ClientID     string
	Name         string
	Reference    string
	Address      string
	ContactName  string
	ContactPhone string
}

type CreateContractInput struct {
	ClientID     string
	SiteID       string
	ContractType string
	StartDate    time.Time
	EndDate      *time.Time
	Rate         float64
	Currency     string
}

type Store interface {
	CreateClient(ctx context.Context, input CreateClientInput) (Client, error)
	GetClient(ctx context.Context, clientID string) (Client, error)
	ListClients(ctx context.Context, agencyID, status string) ([]Client, error)
	UpdateClientStatus(ctx context.Context, clientID, status string) (Client, error)

	CreateSite(ctx context.Context, input CreateSiteInput) (Site, error)
	GetSite(ctx context.Context, siteID string) (Site, error)
	ListSites(ctx context.Context, clientID string) ([]Site, error)

	CreateContract(ctx context.Context, input CreateContractInput) (Contract, error)
	ListContracts(ctx context.Context, clientID string) ([]Contract, error)
}
