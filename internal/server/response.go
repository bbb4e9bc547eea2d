package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// Error kinds carried in editor-facing error responses so clients can
// branch without parsing messages.
const (
	kindValidation        = "validation"
	kindNotFound          = "not_found"
	kindAlreadyExists     = "already_exists"
	kindUnauthorized      = "unauthorized"
	kindForbidden         = "forbidden"
	kindInvalidTransition = "invalid_transition"
	kindAlreadyFinalized  = "already_finalized"
	kindConflict          = "conflict"
	kindInternal          = "internal"
)

type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// writeError writes a JSON error response with a machine-readable kind.
func writeError(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSON(w, statusCode, errorResponse{Kind: kind, Error: message})
}

// writeDomainError maps domain errors to HTTP status codes and error kinds.
// Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, kindInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, kindAlreadyFinalized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, kindConflict, "concurrent update detected, retry")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, kindAlreadyExists, "resource already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, kindValidation, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, kindValidation, "invalid input")
		}
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, kindForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, kindInternal, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, bounding the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodePageToken encodes the next offset as a base64 page token, empty
// when there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
