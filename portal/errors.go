package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	perrors "github.com/jrsteele09/carebook-portal/internal/errors"
)

// Operation names used in errors and logs
const (
	OpLogin    = "login"
	OpRegister = "register"
	OpRefresh  = "refresh"
	OpLogout   = "logout"
)

// APIError is a non-2xx answer from the portal API. It unwraps to the
// sentinel in internal/errors that matches the operation and status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	unauthorized := e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden

	switch {
	case e.Op == OpLogin && e.StatusCode == http.StatusUnauthorized:
		return perrors.ErrInvalidCredentials
	case e.Op == OpLogin && e.StatusCode == http.StatusForbidden:
		return perrors.ErrEmailUnconfirmed
	case unauthorized:
		return perrors.ErrUnauthorized
	case e.StatusCode >= http.StatusInternalServerError:
		return perrors.ErrTransientService
	case e.Op == OpRefresh:
		// Refresh is fail-closed; anything else is a service problem.
		return perrors.ErrTransientService
	}
	return nil
}

// errorMessage pulls a human readable message out of an error body.
// JSON bodies are searched for the usual fields; anything else is used verbatim.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return trimmed
	}
	for _, key := range []string{"message", "Message", "detail", "title", "error_description", "error"} {
		if s, ok := envelope[key].(string); ok && s != "" {
			return s
		}
	}
	if errs, ok := envelope["errors"].(map[string]any); ok {
		var parts []string
		for field, v := range errs {
			if list, ok := v.([]any); ok && len(list) > 0 {
				parts = append(parts, fmt.Sprintf("%s: %v", field, list[0]))
			}
		}
		if len(parts) > 0 {
			sort.Strings(parts)
			return strings.Join(parts, "; ")
		}
	}
	return trimmed
}
