package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error            string `json:"error"`
	RequiresPassword bool   `json:"requiresPassword,omitempty"`
}

// writeError translates service errors to HTTP status codes. Expired and
// exhausted content are distinguishable to the client (410 vs 403) but both
// read as "gone" in the message, so the response never leaks whether a
// ceiling or a clock killed the link.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *linkvault.ValidationError

	switch {
	case errors.As(err, &verr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: verr.Reason})
	case errors.Is(err, linkvault.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "content not found"})
	case errors.Is(err, linkvault.ErrExpired):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, ErrorResponse{Error: "content is no longer available"})
	case errors.Is(err, linkvault.ErrExhausted):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{Error: "content is no longer available"})
	case errors.Is(err, linkvault.ErrAccessDenied):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{Error: "password required or incorrect", RequiresPassword: true})
	case errors.Is(err, linkvault.ErrStorageUnavailable):
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{Error: "storage unavailable"})
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal server error"})
	}
}
