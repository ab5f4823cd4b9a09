package api

import (
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/webhook"
)

// mapError converts cachehook errors to Forge HTTP errors.
func mapError(err error) error {
	var verr *webhook.ValidationError
	switch {
	case errors.As(err, &verr):
		return forge.BadRequest(err.Error())
	case errors.Is(err, cachehook.ErrWebhookNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, cachehook.ErrEventNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, cachehook.ErrDeliveryNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, cachehook.ErrDLQNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, cachehook.ErrDuplicateDefinition):
		return forge.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, cachehook.ErrPayloadValidationFailed):
		return forge.BadRequest(err.Error())
	case errors.Is(err, cachehook.ErrWebhookDisabled):
		return forge.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return forge.InternalError(err)
	}
}
