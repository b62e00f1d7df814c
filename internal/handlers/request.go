package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ruralpay/backoffice/internal/lending"
	"github.com/ruralpay/backoffice/internal/repository"
	"github.com/ruralpay/backoffice/internal/services"
)

const maxBodyBytes = 1_048_576

// decodeBody reads exactly one JSON object into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := v.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// accountRef treats a UUID as an account ID and anything else as an account number.
func accountRef(s string) services.AccountRef {
	if _, err := uuid.Parse(s); err == nil {
		return services.ByID(s)
	}
	return services.ByNumber(s)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrLoanNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrLoanTypeNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrSameAccount),
		errors.Is(err, services.ErrInvalidTransactionType),
		errors.Is(err, services.ErrInvalidRate),
		errors.Is(err, lending.ErrInvalidLoanApplication):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrConcurrentUpdate),
		errors.Is(err, lending.ErrInvalidLoanStateTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, services.ErrNoBeneficiary),
		errors.Is(err, services.ErrLoanNotPayable),
		errors.Is(err, services.ErrNoDueDate),
		errors.Is(err, services.ErrLoanNotOverdue):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", r.Method, r.URL.Path, err)
		services.SendErrorResponse(w, "Internal server error", status, nil)
		return
	}
	services.SendErrorResponse(w, err.Error(), status, nil)
}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date (UTC).
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// optionalDate parses s when set, falling back to def.
func optionalDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return parseDate(s)
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}
