package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"go.uber.org/zap"
)

var validate = validator.New()

// noplog backs the helpers that only ever emit typed domain errors
var noplog = zap.NewNop()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError translates errors to the JSON error envelope. Typed
// domain errors carry their own status; anything else becomes an
// opaque 500.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		logger.Error("request failed", zap.Error(err))
		domainErr = domain.NewInternalError()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domainErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": domainErr})
}

// respondValidationError maps validator failures to per-field messages
func respondValidationError(w http.ResponseWriter, err error) {
	var fields []domain.FieldError
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields = append(fields, domain.FieldError{
				Field:   toJSONFieldName(fe.Field()),
				Message: formatValidationError(fe),
			})
		}
	}
	domainErr := domain.NewFieldValidationError(fields)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domainErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": domainErr})
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// decodeBody parses and validates a JSON request body
func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		respondError(w, noplog, domain.NewValidationError("malformed JSON body"))
		return false
	}
	if err := validate.Struct(target); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// pathID parses the {id} route parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, noplog, domain.NewValidationError(name+" must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// parseListParams reads pagination, search, ordering and the advanced
// filter sublanguage from the query string. Filters arrive as a JSON
// array in the "filters" parameter; unknown fields and operators are
// dropped later at the repository boundary.
func parseListParams(r *http.Request) domain.ListParams {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}

	params := domain.ListParams{
		Page:        page,
		PageSize:    pageSize,
		Search:      q.Get("search"),
		OrderBy:     q.Get("orderBy"),
		FilterLogic: domain.FilterLogicAnd,
	}
	if q.Get("filterLogic") == string(domain.FilterLogicOr) {
		params.FilterLogic = domain.FilterLogicOr
	}
	if raw := q.Get("filters"); raw != "" {
		var clauses []domain.FilterClause
		if err := json.Unmarshal([]byte(raw), &clauses); err == nil {
			params.Filters = clauses
		}
	}
	return params
}

// queryInt reads an integer query parameter with a default
func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
