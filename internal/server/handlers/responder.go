package handlers

import (
	"net/http"

	apperrors "github.com/finsight/finsight/internal/errors"
)

// ErrorResponder writes an error response for a request.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var errorResponder ErrorResponder = apperrors.RespondWithError

// SetErrorResponder lets the server package route handler errors through its
// central error handler. A nil responder restores the default.
func SetErrorResponder(responder ErrorResponder) {
	if responder == nil {
		errorResponder = apperrors.RespondWithError
		return
	}
	errorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}
