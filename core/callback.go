package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HandleCallback drives the authorization callback state machine. Every
// failure is mapped and funneled to the Failure/PostFailure hooks; the
// handler never writes a response body of its own, on success or failure.
func (ins *Installer) HandleCallback(w http.ResponseWriter, r *http.Request, cbOptions *CallbackOptions) {
	if ins == nil {
		return
	}
	ctx := r.Context()
	startedAt := ins.now()
	options := cloneInstallURLOptions(ins.config.InstallOptions)
	if cbOptions == nil {
		cbOptions = &CallbackOptions{}
	}

	fail := func(err error) {
		ins.observeOperation(ctx, startedAt, "handle_callback", err, callbackFields(options))
		mapped := ins.mapError(err)
		if cbOptions.Failure != nil {
			cbOptions.Failure(ctx, mapped, options, w, r)
		}
		if cbOptions.PostFailure != nil {
			cbOptions.PostFailure(ctx, mapped, options, w, r)
		}
	}

	query := r.URL.Query()
	if remoteErr := strings.TrimSpace(query.Get("error")); remoteErr != "" {
		fail(fmt.Errorf("%w: authorization server returned %q", ErrAuthorization, remoteErr))
		return
	}
	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		fail(ErrMissingCode)
		return
	}

	if ins.config.stateVerificationEnabled() {
		verified, err := ins.verifyCallbackState(ctx, w, r, query.Get("state"))
		if err != nil {
			fail(err)
			return
		}
		options = verified
	}

	if cbOptions.BeforeInstallation != nil {
		proceed, err := cbOptions.BeforeInstallation(ctx, options, w, r)
		if err != nil {
			fail(err)
			return
		}
		if !proceed {
			ins.observeOperation(ctx, startedAt, "handle_callback", nil, callbackFields(options))
			return
		}
	}

	resp, err := ins.exchangeClient.Exchange(ctx, ExchangeRequest{
		Code:        code,
		RedirectURI: options.RedirectURI,
	})
	if err != nil {
		fail(fmt.Errorf("%w: %v", ErrAuthorization, err))
		return
	}

	installation, err := buildInstallation(ins.config.AuthVersion, ins.now(), resp)
	if err != nil {
		fail(fmt.Errorf("%w: %v", ErrAuthorization, err))
		return
	}
	installation.AppID = firstNonEmpty(installation.AppID, resp.AppID)

	if cbOptions.AfterInstallation != nil {
		proceed, hookErr := cbOptions.AfterInstallation(ctx, installation, options, w, r)
		if hookErr != nil {
			fail(hookErr)
			return
		}
		if !proceed {
			ins.observeOperation(ctx, startedAt, "handle_callback", nil, callbackFields(options))
			return
		}
	}

	if err := ins.installationStore.Store(ctx, installation); err != nil {
		fail(fmt.Errorf("%w: store installation: %v", ErrAuthorization, err))
		return
	}

	ins.observeOperation(ctx, startedAt, "handle_callback", nil, installationFields(installation))
	if cbOptions.Success != nil {
		cbOptions.Success(ctx, installation, options, w, r)
	}
	if cbOptions.PostSuccess != nil {
		cbOptions.PostSuccess(ctx, installation, options, w, r)
	}
}

// verifyCallbackState applies the cookie checks and the state-token check.
// Legacy verification relaxes only the cookie presence/match steps; the state
// token itself must always verify against the store.
func (ins *Installer) verifyCallbackState(ctx context.Context, w http.ResponseWriter, r *http.Request, state string) (InstallURLOptions, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return InstallURLOptions{}, ErrMissingState
	}

	legacy := ins.config.State.LegacyVerification
	cookie, err := r.Cookie(StateCookieName)
	switch {
	case err != nil:
		if !legacy {
			return InstallURLOptions{}, ErrStateCookieNotFound
		}
	case cookie.Value != state:
		if !legacy {
			return InstallURLOptions{}, ErrStateCookieMismatch
		}
	}

	if ins.stateStore == nil {
		return InstallURLOptions{}, fmt.Errorf("core: state verification is enabled without a state store: %w", ErrStateInvalid)
	}
	options, err := ins.stateStore.Verify(ctx, ins.now(), state)
	if err != nil {
		return InstallURLOptions{}, err
	}
	http.SetCookie(w, ins.expiredStateCookie())
	return options, nil
}

// buildInstallation maps the raw token response into an Installation. The v1
// response carries a single flat user token plus an optional nested bot; the
// v2 response carries the bot token at the top level plus an authed user.
func buildInstallation(version AuthVersion, now time.Time, resp ExchangeResponse) (Installation, error) {
	if version == AuthVersionV1 {
		return buildV1Installation(now, resp)
	}
	return buildV2Installation(now, resp)
}

func buildV1Installation(now time.Time, resp ExchangeResponse) (Installation, error) {
	if strings.TrimSpace(resp.AccessToken) == "" {
		return Installation{}, fmt.Errorf("core: token response is missing access_token")
	}
	installation := Installation{
		User: UserCredential{
			ID:     resp.UserID,
			Token:  resp.AccessToken,
			Scopes: splitScopes(resp.Scope),
		},
		AppID:       resp.AppID,
		TokenType:   firstNonEmpty(resp.TokenType, "user"),
		InstalledAt: now.UTC(),
	}
	if teamID := strings.TrimSpace(resp.TeamID); teamID != "" {
		installation.Team = &TeamRef{ID: teamID, Name: resp.TeamName}
	}
	if enterpriseID := strings.TrimSpace(resp.EnterpriseID); enterpriseID != "" {
		installation.Enterprise = &EnterpriseRef{ID: enterpriseID}
	}
	if resp.Bot != nil && strings.TrimSpace(resp.Bot.BotAccessToken) != "" {
		installation.Bot = &BotCredential{
			UserID: resp.Bot.BotUserID,
			Token:  resp.Bot.BotAccessToken,
		}
	}
	installation.IncomingWebhook = mapIncomingWebhook(resp.IncomingWebhook)
	if err := installation.Validate(); err != nil {
		return Installation{}, err
	}
	return installation, nil
}

func buildV2Installation(now time.Time, resp ExchangeResponse) (Installation, error) {
	installation := Installation{
		AppID:               resp.AppID,
		TokenType:           firstNonEmpty(resp.TokenType, "bot"),
		IsEnterpriseInstall: resp.IsEnterpriseInstall,
		InstalledAt:         now.UTC(),
	}
	if resp.Team != nil && strings.TrimSpace(resp.Team.ID) != "" {
		installation.Team = &TeamRef{ID: resp.Team.ID, Name: resp.Team.Name}
	}
	if resp.Enterprise != nil && strings.TrimSpace(resp.Enterprise.ID) != "" {
		installation.Enterprise = &EnterpriseRef{ID: resp.Enterprise.ID, Name: resp.Enterprise.Name}
	}

	if strings.TrimSpace(resp.AccessToken) != "" {
		bot := &BotCredential{
			ID:           resp.BotID,
			UserID:       resp.BotUserID,
			Token:        resp.AccessToken,
			Scopes:       splitScopes(resp.Scope),
			RefreshToken: resp.RefreshToken,
		}
		if resp.ExpiresIn > 0 {
			expiresAt := now.UTC().Add(time.Duration(resp.ExpiresIn) * time.Second)
			bot.ExpiresAt = &expiresAt
		}
		installation.Bot = bot
	}

	if resp.AuthedUser != nil {
		installation.User = UserCredential{
			ID:           resp.AuthedUser.ID,
			Token:        resp.AuthedUser.AccessToken,
			Scopes:       splitScopes(resp.AuthedUser.Scope),
			RefreshToken: resp.AuthedUser.RefreshToken,
		}
		if resp.AuthedUser.ExpiresIn > 0 {
			expiresAt := now.UTC().Add(time.Duration(resp.AuthedUser.ExpiresIn) * time.Second)
			installation.User.ExpiresAt = &expiresAt
		}
	}

	if installation.Bot == nil && strings.TrimSpace(installation.User.Token) == "" {
		return Installation{}, fmt.Errorf("core: token response carries neither a bot token nor a user token")
	}

	installation.IncomingWebhook = mapIncomingWebhook(resp.IncomingWebhook)
	if err := installation.Validate(); err != nil {
		return Installation{}, err
	}
	return installation, nil
}

func mapIncomingWebhook(webhook *ExchangeIncomingWebhook) *IncomingWebhook {
	if webhook == nil {
		return nil
	}
	return &IncomingWebhook{
		URL:              webhook.URL,
		Channel:          webhook.Channel,
		ChannelID:        webhook.ChannelID,
		ConfigurationURL: webhook.ConfigurationURL,
	}
}

func callbackFields(options InstallURLOptions) map[string]any {
	return map[string]any{"team_id": options.TeamID}
}

func installationFields(installation Installation) map[string]any {
	fields := map[string]any{"user_id": installation.User.ID}
	if installation.Team != nil {
		fields["team_id"] = installation.Team.ID
	}
	if installation.Enterprise != nil {
		fields["enterprise_id"] = installation.Enterprise.ID
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
