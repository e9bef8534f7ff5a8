package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	InstallErrorBadInput       = "INSTALL_BAD_INPUT"
	InstallErrorConfigInvalid  = "INSTALL_CONFIG_INVALID"
	InstallErrorURLFailed      = "INSTALL_URL_FAILED"
	InstallErrorMissingCode    = "INSTALL_MISSING_CODE"
	InstallErrorMissingState   = "INSTALL_MISSING_STATE"
	InstallErrorCookieNotFound = "INSTALL_COOKIE_NOT_FOUND"
	InstallErrorStateMismatch  = "INSTALL_STATE_MISMATCH"
	InstallErrorStateInvalid   = "INSTALL_STATE_INVALID"
	InstallErrorAuthFailed     = "INSTALL_AUTH_FAILED"
	InstallErrorInternal       = "INSTALL_INTERNAL_ERROR"
)

var (
	ErrConfigInvalid        = errors.New("core: installer configuration is invalid")
	ErrEmptyScopes          = errors.New("core: at least one scope is required")
	ErrURLGeneration        = errors.New("core: install url generation failed")
	ErrMissingCode          = errors.New("core: callback request is missing the code parameter")
	ErrMissingState         = errors.New("core: callback request is missing the state parameter")
	ErrStateCookieNotFound  = errors.New("core: install state cookie not found")
	ErrStateCookieMismatch  = errors.New("core: install state cookie does not match the state parameter")
	ErrStateInvalid         = errors.New("core: install state failed verification")
	ErrStateExpired         = errors.New("core: install state expired")
	ErrAuthorization        = errors.New("core: authorization failed")
	ErrInstallationNotFound = errors.New("core: installation not found")
)

func installErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureInstallErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrConfigInvalid):
		return newInstallError(err.Error(), goerrors.CategoryBadInput, InstallErrorConfigInvalid)
	case errors.Is(err, ErrEmptyScopes), errors.Is(err, ErrURLGeneration):
		return newInstallError(err.Error(), goerrors.CategoryBadInput, InstallErrorURLFailed)
	case errors.Is(err, ErrMissingCode):
		return newInstallError(err.Error(), goerrors.CategoryBadInput, InstallErrorMissingCode)
	case errors.Is(err, ErrMissingState):
		return newInstallError(err.Error(), goerrors.CategoryBadInput, InstallErrorMissingState)
	case errors.Is(err, ErrStateCookieNotFound):
		return newInstallError(err.Error(), goerrors.CategoryAuth, InstallErrorCookieNotFound)
	case errors.Is(err, ErrStateCookieMismatch):
		return newInstallError(err.Error(), goerrors.CategoryAuth, InstallErrorStateMismatch)
	case errors.Is(err, ErrStateExpired), errors.Is(err, ErrStateInvalid):
		return newInstallError(err.Error(), goerrors.CategoryAuth, InstallErrorStateInvalid)
	case errors.Is(err, ErrInstallationNotFound), errors.Is(err, ErrAuthorization):
		return newInstallError(err.Error(), goerrors.CategoryAuth, InstallErrorAuthFailed)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "install state"), strings.Contains(msg, "state cookie"):
		return newInstallError(err.Error(), goerrors.CategoryAuth, InstallErrorStateInvalid)
	case strings.Contains(msg, "token exchange"), strings.Contains(msg, "authorization"):
		return newInstallError(err.Error(), goerrors.CategoryAuth, InstallErrorAuthFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "missing"):
		return newInstallError(err.Error(), goerrors.CategoryBadInput, InstallErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureInstallErrorEnvelope(mapped)
}

func newInstallError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureInstallErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureInstallErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = installHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultInstallTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultInstallTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return InstallErrorBadInput
	case goerrors.CategoryNotFound:
		return InstallErrorAuthFailed
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return InstallErrorAuthFailed
	default:
		return InstallErrorInternal
	}
}

func installHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
