package api

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/cartaomais/appcore/internal/apperrors"
)

// errorFromResponse builds a ServiceError from an error response. The API
// is not consistent about error body shape, so the message is probed from
// the known variants before falling back to the raw body.
func errorFromResponse(resp *Response) *apperrors.ServiceError {
	msg := errorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(msg)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		e := apperrors.Business(msg, resp.StatusCode)
		if code := gjson.GetBytes(resp.Body, "error.code"); code.Exists() {
			e.WithDetails("code", code.String())
		}
		return e
	default:
		return apperrors.Internal(msg, nil).WithDetails("status", resp.StatusCode)
	}
}

func errorMessage(body []byte) string {
	for _, path := range []string{"message", "error.message", "error", "detail"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	if len(body) == 0 {
		return "request failed"
	}
	const max = 256
	if len(body) > max {
		return fmt.Sprintf("%s...(truncated)", body[:max])
	}
	return string(body)
}
