package services

import (
	"strings"

	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/rs/zerolog/log"
)

type field struct {
	name  string
	value string
}

// requireFields returns a BadInput error listing every blank field, or nil.
func requireFields(message string, fields ...field) *apperr.Error {
	var invalid *apperr.Error
	for _, f := range fields {
		if strings.TrimSpace(f.value) != "" {
			continue
		}
		if invalid == nil {
			invalid = apperr.Invalid(message)
		}
		invalid.WithField(f.name, f.name+" is required")
	}
	return invalid
}

// storeFailure logs a persistence error and hides its details from the caller.
func storeFailure(err error, message, email string) *apperr.Error {
	event := log.Error().Err(err)
	if email != "" {
		event = event.Str("email", email)
	}
	event.Msg(message)
	return apperr.Wrap(apperr.StoreFailed, message, err)
}
