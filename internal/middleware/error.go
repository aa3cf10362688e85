package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// APIResponse is the envelope for single-resource responses
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Pagination describes the position of a collection page
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginatedResponse is the envelope for collection responses
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// NewPagination computes totalPages as ceil(total/limit)
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// RespondWithJSON sends a raw JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// RespondWithData wraps a single resource in the success envelope
func RespondWithData(w http.ResponseWriter, statusCode int, data interface{}) {
	RespondWithJSON(w, statusCode, APIResponse{Success: true, Data: data})
}

// RespondWithWarning reports an operation that succeeded with incomplete
// side effects: success stays true, the error field carries a stable code
// callers can match on mechanically.
func RespondWithWarning(w http.ResponseWriter, statusCode int, data interface{}, code, message string) {
	RespondWithJSON(w, statusCode, APIResponse{Success: true, Data: data, Error: code, Message: message})
}

// RespondWithPage wraps a collection page in the pagination envelope
func RespondWithPage(w http.ResponseWriter, data interface{}, pagination Pagination) {
	RespondWithJSON(w, http.StatusOK, PaginatedResponse{Data: data, Pagination: pagination})
}

// RespondWithError sends a failure envelope
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// RespondWithValidationErrors sends a 400 failure envelope listing the
// fields that failed validation
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	message := "validation failed"
	for _, e := range errors {
		message += "; " + e.Field + ": " + e.Message
	}
	RespondWithError(w, http.StatusBadRequest, message)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 envelopes
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
