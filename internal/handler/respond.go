package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/platform"
)

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if obj == nil {
		obj = struct{}{}
	}
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// writeError maps the platform error taxonomy onto status codes in one
// place: validation 400, conflict 409, not found 404, provider failures 502,
// everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var vErr *platform.ValidationError
	var pErr *platform.ProviderError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
		msg = vErr.Error()
	case errors.Is(err, platform.ErrConflict):
		status = http.StatusConflict
		msg = err.Error() // sentinel text, plus upstream detail when wrapped
	case errors.Is(err, platform.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.As(err, &pErr):
		status = http.StatusBadGateway
		msg = pErr.Message
	default:
		log.Errorf("handler error: %v", err)
	}

	writeJSON(w, status, errorResponse{Message: msg, Code: status})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return platform.Invalid("body", "malformed request: %v", err)
	}
	return nil
}
