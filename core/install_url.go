package core

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
)

const (
	// StateCookieName is the cookie that pairs the browser session with the
	// issued state token across the authorization redirect.
	StateCookieName = "oauth-install-state"

	v1AuthorizePath = "/oauth/authorize"
	v2AuthorizePath = "/oauth/v2/authorize"
)

// GenerateInstallURL builds the authorization URL for the given options. When
// verifyState is true and a state store is configured, a state token bound to
// the options is generated and appended as the state parameter.
func (ins *Installer) GenerateInstallURL(ctx context.Context, options InstallURLOptions, verifyState bool) (string, error) {
	if ins == nil {
		return "", fmt.Errorf("core: installer is not configured")
	}
	installURL, _, err := ins.buildInstallURL(ctx, options, verifyState)
	return installURL, err
}

func (ins *Installer) buildInstallURL(ctx context.Context, options InstallURLOptions, verifyState bool) (string, string, error) {
	startedAt := ins.now()
	fields := map[string]any{"team_id": options.TeamID}

	installURL, state, err := ins.assembleInstallURL(ctx, options, verifyState)
	ins.observeOperation(ctx, startedAt, "generate_install_url", err, fields)
	if err != nil {
		return "", "", ins.mapError(err)
	}
	return installURL, state, nil
}

func (ins *Installer) assembleInstallURL(ctx context.Context, options InstallURLOptions, verifyState bool) (string, string, error) {
	scopes := normalizeScopes(options.Scopes)
	if len(scopes) == 0 {
		return "", "", fmt.Errorf("core: generate install url: %w", ErrEmptyScopes)
	}

	state := ""
	if verifyState {
		if ins.stateStore == nil {
			return "", "", fmt.Errorf("%w: state verification requested without a state store", ErrURLGeneration)
		}
		generated, err := ins.stateStore.Generate(ctx, options, ins.now())
		if err != nil {
			return "", "", fmt.Errorf("%w: generate state parameter: %v", ErrURLGeneration, err)
		}
		state = generated
	}

	values := url.Values{}
	values.Set("client_id", ins.config.ClientID)
	values.Set("scope", strings.Join(scopes, ","))
	if ins.config.AuthVersion == AuthVersionV2 {
		if userScopes := normalizeScopes(options.UserScopes); len(userScopes) > 0 {
			values.Set("user_scope", strings.Join(userScopes, ","))
		}
	}
	if teamID := strings.TrimSpace(options.TeamID); teamID != "" {
		values.Set("team", teamID)
	}
	if redirectURI := strings.TrimSpace(options.RedirectURI); redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	if metadata := strings.TrimSpace(options.Metadata); metadata != "" {
		values.Set("metadata", metadata)
	}
	if state != "" {
		values.Set("state", state)
	}

	base := strings.TrimSuffix(strings.TrimSpace(ins.config.AuthorizeBaseURL), "/")
	return base + ins.authorizePath() + "?" + values.Encode(), state, nil
}

func (ins *Installer) authorizePath() string {
	if ins.config.AuthVersion == AuthVersionV1 {
		return v1AuthorizePath
	}
	return v2AuthorizePath
}

// HandleInstallPath serves the entry point of the install flow: it builds the
// authorization URL from the configured install options, sets the state
// cookie, and either redirects (DirectInstall) or renders a minimal install
// page linking to the authorization URL. URL generation failures are returned
// to the caller so the surrounding handler can render its own error page.
func (ins *Installer) HandleInstallPath(w http.ResponseWriter, r *http.Request, pathOptions *InstallPathOptions) error {
	if ins == nil {
		return fmt.Errorf("core: installer is not configured")
	}
	ctx := r.Context()
	options := cloneInstallURLOptions(ins.config.InstallOptions)

	installURL, state, err := ins.buildInstallURL(ctx, options, ins.config.stateVerificationEnabled())
	if err != nil {
		return err
	}

	if pathOptions != nil && pathOptions.BeforeRedirection != nil {
		proceed, hookErr := pathOptions.BeforeRedirection(w, r)
		if hookErr != nil {
			return ins.mapError(hookErr)
		}
		if !proceed {
			return nil
		}
	}

	if state != "" {
		http.SetCookie(w, ins.stateCookie(state))
	}
	if ins.config.DirectInstall {
		http.Redirect(w, r, installURL, http.StatusFound)
		return nil
	}
	ins.renderInstallPage(w, installURL)
	return nil
}

func (ins *Installer) renderInstallPage(w http.ResponseWriter, installURL string) {
	serviceName := strings.TrimSpace(ins.config.ServiceName)
	if serviceName == "" {
		serviceName = "service"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w,
		`<html><body><a href="%s">Add to %s</a></body></html>`,
		html.EscapeString(installURL),
		html.EscapeString(serviceName),
	)
}

func (ins *Installer) stateCookie(state string) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(ins.config.State.TTL().Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (ins *Installer) expiredStateCookie() *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
