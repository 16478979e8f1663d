package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/trihash/internal/apperr"
	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/export"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	// Identifiers use &, < and >; keep them readable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// decodeJSON reads exactly one JSON value and rejects unknown fields.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors to statuses. Unexpected errors are logged
// under op and hidden from the client.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalid),
		errors.Is(err, engine.ErrMissingField),
		errors.Is(err, engine.ErrUnknownField),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, export.ErrLossy),
		errors.Is(err, base96.ErrInvalidLength),
		errors.Is(err, base96.ErrInvalidSymbol),
		errors.Is(err, composite.ErrMalformed):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, export.ErrMalformedPayload),
		errors.Is(err, export.ErrInvalidIdentifier),
		errors.Is(err, export.ErrInvalidFieldName):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, engine.ErrMismatch):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, engine.ErrNoFrames):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no frames loaded"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
