package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/integrations"
)

const (
	errNotConnected = "Not connected to Notion"
	errImageFailed  = "Failed to load image"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeMessage(w, status, errors.UserMessage(err))
}

// statusFor maps an error to an HTTP status. Coded causes are consulted
// through the whole chain so a NOT_FOUND under SOURCE_UNAVAILABLE is a 404.
func statusFor(err error) int {
	switch {
	case errors.Has(err, errors.ErrCodeInvalidReference),
		errors.Has(err, errors.ErrCodeInvalidInput),
		errors.Has(err, errors.ErrCodeInvalidFormat),
		errors.Has(err, errors.ErrCodeInvalidStyle):
		return http.StatusBadRequest
	case errors.Has(err, errors.ErrCodeNotFound), stderrors.Is(err, integrations.ErrNotFound):
		return http.StatusNotFound
	case errors.Has(err, errors.ErrCodeUnauthorized), stderrors.Is(err, integrations.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Has(err, errors.ErrCodeRateLimited), stderrors.Is(err, integrations.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Has(err, errors.ErrCodeSourceUnavailable), stderrors.Is(err, integrations.ErrNetwork):
		return http.StatusBadGateway
	case errors.Has(err, errors.ErrCodeUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
