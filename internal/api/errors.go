package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/liftlog/internal/logging"
	"github.com/roach88/liftlog/internal/logstore"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Codes for failures that happen before the store is reached.
const (
	codeBadRequest = "BAD_REQUEST"
	codeNotFound   = "NOT_FOUND"
	codeInternal   = "INTERNAL"
)

var errNoEntry = errors.New("no entry for exercise")

// statusFor maps a store error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	code := logstore.CodeOf(err)
	switch code {
	case logstore.ErrCodeEntryNotFound:
		return http.StatusNotFound, string(code)
	case logstore.ErrCodeInvalidEntry, logstore.ErrCodeInvalidColumn:
		return http.StatusBadRequest, string(code)
	case "":
		return http.StatusInternalServerError, codeInternal
	default:
		return http.StatusInternalServerError, string(code)
	}
}

// respondStoreError logs err and writes it with the status its code maps to.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	respondError(w, r, err, status, code)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, status int, code string) {
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request error", "path", r.URL.Path, "method", r.Method, "status", status, "code", code, "error", err)
	} else {
		logger.Debug("request rejected", "path", r.URL.Path, "method", r.Method, "status", status, "code", code, "error", err)
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError && code == codeInternal {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
		Code:    code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
