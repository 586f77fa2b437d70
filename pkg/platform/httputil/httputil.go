package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	dErrors "cpcaisse/pkg/domain-errors"
	"cpcaisse/pkg/requestcontext"
)

// Envelope is the single response shape of the API.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

// ErrorBody carries a stable uppercase code, a human message and optional details.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	Timestamp  time.Time   `json:"timestamp"`
	RequestID  string      `json:"request_id,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination derives the page count from total and limit.
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

const internalMessage = "Une erreur interne est survenue. Contactez la DSI."

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

func meta(r *http.Request) Meta {
	ctx := r.Context()
	return Meta{
		Timestamp: requestcontext.Now(ctx).UTC(),
		RequestID: requestcontext.RequestID(ctx),
	}
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, r *http.Request, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Meta: meta(r)})
}

// WritePage writes a success envelope carrying pagination metadata.
func WritePage(w http.ResponseWriter, r *http.Request, data any, p Pagination) {
	m := meta(r)
	m.Pagination = &p
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: m})
}

// WriteFailure writes an error envelope with an explicit status and code.
// Used by middleware that rejects a request before any domain code runs.
func WriteFailure(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteJSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Meta:    meta(r),
	})
}

// WriteError centralizes domain error translation to HTTP responses.
// Internal failures never expose their message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteFailure(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", internalMessage, nil)
		return
	}

	status := DomainCodeToHTTPStatus(domainErr.Code)
	code := domainErr.Reason
	if code == "" {
		code = DomainCodeToHTTPCode(domainErr.Code)
	}
	message := domainErr.Message
	details := domainErr.Details

	switch domainErr.Code {
	case dErrors.CodeInternal, dErrors.CodeInvariantViolation:
		message = internalMessage
		details = nil
	case dErrors.CodePersistence:
		message = "Erreur de persistance, veuillez réessayer."
		if details == nil {
			details = map[string]bool{"retryable": true}
		}
	}
	WriteFailure(w, r, status, code, message, details)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeEmptyUpdate:
		return http.StatusBadRequest
	case dErrors.CodeBusinessRule:
		return http.StatusUnprocessableEntity
	case dErrors.CodeConflict, dErrors.CodeIllegalTransition:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the stable uppercase
// codes callers match on. A domain error's Reason takes precedence.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "NOT_FOUND"
	case dErrors.CodeBadRequest:
		return "BAD_REQUEST"
	case dErrors.CodeValidation:
		return "VALIDATION_ERROR"
	case dErrors.CodeBusinessRule:
		return "BUSINESS_RULE"
	case dErrors.CodeEmptyUpdate:
		return "EMPTY_UPDATE"
	case dErrors.CodeIllegalTransition:
		return "STATUT_INCOMPATIBLE"
	case dErrors.CodeConflict:
		return "CONFLICT"
	case dErrors.CodeUnauthorized:
		return "NOT_AUTHENTICATED"
	case dErrors.CodeForbidden:
		return "ACCESS_DENIED"
	case dErrors.CodeTimeout:
		return "TIMEOUT"
	case dErrors.CodePersistence:
		return "PERSISTENCE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
