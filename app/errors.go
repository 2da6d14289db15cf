package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
	"github.com/sushihentaime/blogshelf/internal/userservice"
)

const (
	msgServerError        = "Something went wrong!"
	msgValidation         = "Validation error"
	msgNotFound           = "the requested resource could not be found"
	msgMethodNotAllowed   = "method not allowed"
	msgUnauthenticated    = "invalid or missing authentication token"
	msgRateLimited        = "rate limit exceeded"
	msgPasswordMismatch   = "Password and Confirm password does not match"
	msgDuplicateUser      = "User already exists"
	msgInvalidCredentials = "Email/Password is incorrect"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url))
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string, detail any) {
	env := envelope{"message": message, "status": statusFailure}
	if detail != nil {
		env["error"] = detail
	}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, msgServerError, nil)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error(), nil)
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusBadRequest, msgValidation, errors)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, msgNotFound, nil)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed, nil)
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, msgUnauthenticated, nil)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, msgRateLimited, nil)
}

func (app *application) payloadTooLargeResponse(w http.ResponseWriter, r *http.Request, limit int64) {
	message := fmt.Sprintf("request body must not be larger than %d bytes", limit)
	app.errorResponse(w, r, http.StatusRequestEntityTooLarge, message, nil)
}

// serviceErrorResponse maps an error returned by a service onto the failure envelope.
func (app *application) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr common.ValidationError

	switch {
	case errors.As(err, &validationErr):
		app.failedValidationResponse(w, r, validationErr.Errors)
	case errors.Is(err, userservice.ErrPasswordMismatch):
		app.errorResponse(w, r, http.StatusBadRequest, msgPasswordMismatch, nil)
	case errors.Is(err, userservice.ErrDuplicateUser):
		app.errorResponse(w, r, http.StatusBadRequest, msgDuplicateUser, nil)
	case errors.Is(err, userservice.ErrInvalidCredentials):
		app.errorResponse(w, r, http.StatusBadRequest, msgInvalidCredentials, nil)
	case errors.Is(err, mediaservice.ErrUnsupportedMedia):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, common.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, userservice.ErrInvalidToken), errors.Is(err, blogservice.ErrUserForeignKey):
		app.invalidAuthenticationTokenResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
