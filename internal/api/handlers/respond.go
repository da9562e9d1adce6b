package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/rs/zerolog/log"
)

// ErrorBody mirrors the GraphQL Errors type for REST responses.
type ErrorBody struct {
	Type    apperr.Kind         `json:"type"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("Unclassified error in HTTP handler")
		respondJSON(w, http.StatusInternalServerError, ErrorBody{Type: apperr.StoreFailed, Message: "Something went wrong, please try again"})
		return
	}
	respondJSON(w, statusFor(appErr.Kind), ErrorBody{Type: appErr.Kind, Message: appErr.Message, Errors: appErr.Fields})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.BadInput, apperr.MatchingPasswords:
		return http.StatusBadRequest
	case apperr.InvalidToken, apperr.InvalidCredentials:
		return http.StatusUnauthorized
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.UserNotFound, apperr.NoUsersFound, apperr.ClientNotFound, apperr.NoClientsFound:
		return http.StatusNotFound
	case apperr.EmailInUse:
		return http.StatusConflict
	case apperr.FetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
