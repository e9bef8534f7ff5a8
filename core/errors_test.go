package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestInstallErrorMapper_SentinelTaxonomy(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category goerrors.Category
		textCode string
		status   int
	}{
		{"config", fmt.Errorf("%w: client_id is required", ErrConfigInvalid), goerrors.CategoryBadInput, InstallErrorConfigInvalid, http.StatusBadRequest},
		{"empty scopes", fmt.Errorf("generate: %w", ErrEmptyScopes), goerrors.CategoryBadInput, InstallErrorURLFailed, http.StatusBadRequest},
		{"missing code", ErrMissingCode, goerrors.CategoryBadInput, InstallErrorMissingCode, http.StatusBadRequest},
		{"missing state", ErrMissingState, goerrors.CategoryBadInput, InstallErrorMissingState, http.StatusBadRequest},
		{"cookie not found", ErrStateCookieNotFound, goerrors.CategoryAuth, InstallErrorCookieNotFound, http.StatusUnauthorized},
		{"cookie mismatch", ErrStateCookieMismatch, goerrors.CategoryAuth, InstallErrorStateMismatch, http.StatusUnauthorized},
		{"state invalid", fmt.Errorf("verify: %w", ErrStateInvalid), goerrors.CategoryAuth, InstallErrorStateInvalid, http.StatusUnauthorized},
		{"state expired", fmt.Errorf("verify: %w", ErrStateExpired), goerrors.CategoryAuth, InstallErrorStateInvalid, http.StatusUnauthorized},
		{"authorization", fmt.Errorf("%w: exchange failed", ErrAuthorization), goerrors.CategoryAuth, InstallErrorAuthFailed, http.StatusUnauthorized},
		{"not found", ErrInstallationNotFound, goerrors.CategoryAuth, InstallErrorAuthFailed, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := installErrorMapper(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.Category != tc.category {
				t.Fatalf("expected category %s, got %s", tc.category, mapped.Category)
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("expected text code %s, got %s", tc.textCode, mapped.TextCode)
			}
			if mapped.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, mapped.Code)
			}
		})
	}
}

func TestInstallErrorMapper_PassesThroughEnvelopes(t *testing.T) {
	original := goerrors.New("already mapped", goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode("INSTALL_CUSTOM")

	mapped := installErrorMapper(original)
	if mapped.TextCode != "INSTALL_CUSTOM" || mapped.Code != http.StatusConflict {
		t.Fatalf("expected envelope to pass through, got %+v", mapped)
	}
}

func TestInstallErrorMapper_FallbackIsInternal(t *testing.T) {
	mapped := installErrorMapper(errors.New("disk exploded"))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.Code == 0 {
		t.Fatalf("expected http status to be filled in")
	}
	if mapped.TextCode == "" {
		t.Fatalf("expected text code to be filled in")
	}
}

func TestInstallErrorMapper_NilIsNil(t *testing.T) {
	if installErrorMapper(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}
