package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
)

// ValidateAuthenticationViaSwagger satisfies operations declaring bearerAuth.
// The JWT middleware runs first, so a verified principal must already be on the request context.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != "bearerAuth" {
		return nil
	}
	r := input.RequestValidationInput.Request
	if r == nil {
		return errors.New("no request in validation input")
	}
	if creds, ok := platformauth.UserFromContext(r.Context()); !ok || creds == nil {
		return errors.New("missing or invalid bearer token")
	}
	return nil
}

// SpecValidator validates requests against spec and reports failures with the JSON error envelope.
func SpecValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateAuthenticationViaSwagger,
			MultiError:         false,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			response.Error(w, statusCode, message)
		},
	})
}
