package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fortuna/nbaduck/internal/record"
	"github.com/fortuna/nbaduck/internal/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000

	serviceName = "nbaduck"
	version     = "1.0.0"
)

// TableReader is the part of the store the API reads from.
type TableReader interface {
	Tables(ctx context.Context) ([]string, error)
	QueryLimit(ctx context.Context, table string, limit int) (*store.Result, error)
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	tables TableReader
}

// NewHandler creates a new handler
func NewHandler(tables TableReader) *Handler {
	return &Handler{tables: tables}
}

// TableResponse is the body of GET /api/v1/tables/{name}.
type TableResponse struct {
	Table   string          `json:"table"`
	Columns []string        `json:"columns"`
	Rows    []record.Record `json:"rows"`
	Count   int             `json:"count"`
	Limit   int             `json:"limit"`
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := h.tables.HealthCheck(r.Context()); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]string{
		"status":  status,
		"service": serviceName,
		"version": version,
	})
}

// ListTables returns the table names.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	names, err := h.tables.Tables(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list tables", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tables": names,
		"count":  len(names),
	})
}

// GetTable returns up to limit rows of one table.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = min(l, maxLimit)
	}

	names, err := h.tables.Tables(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list tables", err)
		return
	}
	if !slices.Contains(names, name) {
		respondError(w, http.StatusNotFound, "Table not found", store.ErrUnknownTable)
		return
	}

	res, err := h.tables.QueryLimit(r.Context(), name, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read table", err)
		return
	}

	respondJSON(w, http.StatusOK, TableResponse{
		Table:   name,
		Columns: res.Columns,
		Rows:    res.Rows,
		Count:   len(res.Rows),
		Limit:   limit,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
