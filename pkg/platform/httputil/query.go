package httputil

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	dErrors "cpcaisse/pkg/domain-errors"
)

// QueryParser reads optional query parameters and collects every malformed
// one so the caller can answer with a single validation error.
type QueryParser struct {
	r      *http.Request
	errors []dErrors.FieldError
}

func NewQueryParser(r *http.Request) *QueryParser {
	return &QueryParser{r: r}
}

// String returns the trimmed value, "" when absent.
func (p *QueryParser) String(key string) string {
	return strings.TrimSpace(p.r.URL.Query().Get(key))
}

// Int returns the value as an integer, 0 when absent.
func (p *QueryParser) Int(key string) int {
	raw := p.String(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errors = append(p.errors, dErrors.FieldError{Field: key, Message: key + " must be an integer"})
		return 0
	}
	return v
}

// Date returns the value as a date or timestamp, nil when absent. With
// endOfDay, a bare date covers the whole day.
func (p *QueryParser) Date(key string, endOfDay bool) *time.Time {
	raw := p.String(key)
	if raw == "" {
		return nil
	}
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			d = d.Add(24*time.Hour - time.Nanosecond)
		}
		return &d
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		p.errors = append(p.errors, dErrors.FieldError{Field: key, Message: key + " must be a date in YYYY-MM-DD format"})
		return nil
	}
	return &ts
}

// Err returns a validation error listing every malformed parameter, or nil.
func (p *QueryParser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return dErrors.WithDetails(dErrors.New(dErrors.CodeValidation, "Paramètres de requête invalides."), p.errors)
}
