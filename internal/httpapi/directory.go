package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/directory"
)

type createAgencyRequest struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Province  string   `json:"province"`
	Territory string   `json:"territory"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type createServiceTypeRequest struct {
	Name            string `json:"name"`
	Code            string `json:"code"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
}

type setParameterRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (h *Handler) handleAgencies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := requirePrincipal(w, r); !ok {
			return
		}
		activeOnly := queryParam(r, "active") == "true"
		agencies, err := h.Directory.ListAgencies(r.Context(), activeOnly)
		if err != nil {
			status, code, msg := mapDirectoryError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, agencies)
	case http.MethodPost:
		principal, ok := requireStaff(w, r)
		if !ok {
			return
		}
		if !h.can(w, r, principal, "directory", "manage") {
			return
		}
		var req createAgencyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Code = strings.TrimSpace(req.Code)
		req.Name = strings.TrimSpace(req.Name)
		if req.Code == "" || req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "code and name are required")
			return
		}
		agency, err := h.Directory.CreateAgency(r.Context(), directory.CreateAgencyInput{
			Code:      req.Code,
			Name:      req.Name,
			Province:  req.Province,
			Territory: req.Territory,
			Address:   req.Address,
			Phone:     req.Phone,
			Email:     req.Email,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		if err != nil {
			status, code, msg := mapDirectoryError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, agency)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAgencyByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	agencyID, action, ok := pathAction(r.URL.Path, "/api/agencies/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}
	agency, err := h.Directory.GetAgency(r.Context(), agencyID)
	if err != nil {
		status, code, msg := mapDirectoryError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (h *Handler) handleServiceTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := queryParam(r, "active") != "false"
		services, err := h.Directory.ListServiceTypes(r.Context(), activeOnly)
		if err != nil {
			status, code, msg := mapDirectoryError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		principal, ok := requireStaff(w, r)
		if !ok {
			return
		}
		if !h.can(w, r, principal, "directory", "manage") {
			return
		}
		var req createServiceTypeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Code = strings.TrimSpace(req.Code)
		if req.Name == "" || req.Code == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name and code are required")
			return
		}
		service, err := h.Directory.CreateServiceType(r.Context(), directory.CreateServiceTypeInput{
			Name:            req.Name,
			Code:            req.Code,
			Description:     req.Description,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			status, code, msg := mapDirectoryError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, service)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleServiceTypeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	serviceID, action, ok := pathAction(r.URL.Path, "/api/services/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	service, err := h.Directory.GetServiceType(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapDirectoryError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, service)
}

func (h *Handler) handleParameters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		parameters, err := h.Directory.ListParameters(r.Context())
		if err != nil {
			status, code, msg := mapDirectoryError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, parameters)
	case http.MethodPut:
		principal, ok := requireStaff(w, r)
		if !ok {
			return
		}
		if !h.can(w, r, principal, "directory", "manage") {
			return
		}
		var req setParameterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Key = strings.TrimSpace(req.Key)
		if req.Key == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "key is required")
			return
		}
		if err := h.Directory.SetParameter(r.Context(), req.Key, req.Value, req.Description); err != nil {
			status, code, msg := mapDirectoryError(err)
			writeError(w, status, code, msg)
			return
		}
		if h.Settings != nil {
			if err := h.Settings.Reload(r.Context()); err != nil {
				log.Printf("settings reload: %v", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func mapDirectoryError(err error) (int, string, string) {
	switch {
	case errors.Is(err, directory.ErrAgencyNotFound):
		return http.StatusNotFound, "agency_not_found", "agency not found"
	case errors.Is(err, directory.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, directory.ErrParameterNotFound):
		return http.StatusNotFound, "parameter_not_found", "parameter not found"
	case errors.Is(err, directory.ErrDuplicateCode):
		return http.StatusConflict, "duplicate_code", "code already in use"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
