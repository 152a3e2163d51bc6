package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/crm"
)

type createClientRequest struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	AgencyID  string `json:"agency_id"`
	Tags      string `json:"tags"`
}

type clientStatusRequest struct {
	Status string `json:"status"`
}

type createSiteRequest struct {
	ClientID     string `json:"client_id"`
	Name         string `json:"name"`
	Reference    string `json:"reference"`
	Address      string `json:"address"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

type createContractRequest struct {
	ClientID     string  `json:"client_id"`
	SiteID       string  `json:"site_id"`
	ContractType string  `json:"contract_type"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Rate         float64 `json:"rate"`
	Currency     string  `json:"currency"`
}

func (h *Handler) handleClients(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		clients, err := h.CRM.ListClients(r.Context(), queryParam(r, "agency_id"), queryParam(r, "status"))
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, clients)
	case http.MethodPost:
		if !h.can(w, r, principal, "crm", "manage") {
			return
		}
		var req createClientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.FirstName == "" || req.LastName == "" || req.Email == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "first_name, last_name, and email are required")
			return
		}
		client, err := h.CRM.CreateClient(r.Context(), crm.CreateClientInput{
			UserID:    req.UserID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
			AgencyID:  req.AgencyID,
			Tags:      req.Tags,
		})
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, client)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleClientActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/clients/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	clientID := parts[0]
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		client, err := h.CRM.GetClient(r.Context(), clientID)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, client)
	case len(parts) == 2 && parts[1] == "sites":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sites, err := h.CRM.ListSites(r.Context(), clientID)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, sites)
	case len(parts) == 2 && parts[1] == "contracts":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		contracts, err := h.CRM.ListContracts(r.Context(), clientID)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, contracts)
	case len(parts) == 3 && parts[1] == "actions" && parts[2] == "status":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req clientStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		switch req.Status {
		case crm.ClientProspect, crm.ClientActive, crm.ClientSuspended:
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown status")
			return
		}
		client, err := h.CRM.UpdateClientStatus(r.Context(), clientID, req.Status)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, client)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSites(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		clientID := queryParam(r, "client_id")
		if clientID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "client_id is required")
			return
		}
		sites, err := h.CRM.ListSites(r.Context(), clientID)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, sites)
	case http.MethodPost:
		if !h.can(w, r, principal, "crm", "manage") {
			return
		}
		var req createSiteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.ClientID = strings.TrimSpace(req.ClientID)
		req.Reference = strings.TrimSpace(req.Reference)
		if req.ClientID == "" || req.Name == "" || req.Reference == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "client_id, name, and reference are required")
			return
		}
		site, err := h.CRM.CreateSite(r.Context(), crm.CreateSiteInput{
			ClientID:     req.ClientID,
			Name:         req.Name,
			Reference:    req.Reference,
			Address:      req.Address,
			ContactName:  req.ContactName,
			ContactPhone: req.ContactPhone,
		})
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, site)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSiteByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	siteID, action, ok := pathAction(r.URL.Path, "/api/sites/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, authed := requireStaff(w, r); !authed {
		return
	}
	site, err := h.CRM.GetSite(r.Context(), siteID)
	if err != nil {
		status, code, msg := mapCRMError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (h *Handler) handleContracts(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireStaff(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		clientID := queryParam(r, "client_id")
		if clientID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "client_id is required")
			return
		}
		contracts, err := h.CRM.ListContracts(r.Context(), clientID)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, contracts)
	case http.MethodPost:
		if !h.can(w, r, principal, "crm", "manage") {
			return
		}
		var req createContractRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.ClientID = strings.TrimSpace(req.ClientID)
		req.SiteID = strings.TrimSpace(req.SiteID)
		if req.ClientID == "" || req.SiteID == "" || req.StartDate == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "client_id, site_id, and start_date are required")
			return
		}
		switch req.ContractType {
		case crm.ContractMonthly, crm.ContractConsumption, crm.ContractFlatRate:
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown contract type")
			return
		}
		startDate, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "start_date must be YYYY-MM-DD")
			return
		}
		input := crm.CreateContractInput{
			ClientID:     req.ClientID,
			SiteID:       req.SiteID,
			ContractType: req.ContractType,
			StartDate:    startDate,
			Rate:         req.Rate,
			Currency:     req.Currency,
		}
		if req.EndDate != "" {
			endDate, err := time.Parse("2006-01-02", req.EndDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "end_date must be YYYY-MM-DD")
				return
			}
			input.EndDate = &endDate
		}
		contract, err := h.CRM.CreateContract(r.Context(), input)
		if err != nil {
			status, code, msg := mapCRMError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, contract)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func mapCRMError(err error) (int, string, string) {
	switch {
	case errors.Is(err, crm.ErrClientNotFound):
		return http.StatusNotFound, "client_not_found", "client not found"
	case errors.Is(err, crm.ErrSiteNotFound):
		return http.StatusNotFound, "site_not_found", "site not found"
	case errors.Is(err, crm.ErrContractNotFound):
		return http.StatusNotFound, "contract_not_found", "contract not found"
	case errors.Is(err, crm.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email", "email already registered"
	case errors.Is(err, crm.ErrDuplicateReference):
		return http.StatusConflict, "duplicate_reference", "site reference already used"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
