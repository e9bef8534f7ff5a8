package core

import (
	"context"
	"fmt"
)

// Authorize resolves the stored credentials for an incoming request context.
// A missing installation surfaces as an authorization failure rather than a
// plain not-found, matching what request middleware expects.
func (ins *Installer) Authorize(ctx context.Context, query InstallQuery) (AuthorizeResult, error) {
	if ins == nil {
		return AuthorizeResult{}, fmt.Errorf("core: installer is not configured")
	}
	startedAt := ins.now()
	fields := queryFields(query)

	result, err := ins.authorize(ctx, query)
	ins.observeOperation(ctx, startedAt, "authorize", err, fields)
	if err != nil {
		return AuthorizeResult{}, ins.mapError(err)
	}
	return result, nil
}

func (ins *Installer) authorize(ctx context.Context, query InstallQuery) (AuthorizeResult, error) {
	if err := query.Validate(); err != nil {
		return AuthorizeResult{}, err
	}
	installation, err := ins.installationStore.Fetch(ctx, query)
	if err != nil {
		return AuthorizeResult{}, fmt.Errorf("%w: %v", ErrAuthorization, err)
	}

	result := AuthorizeResult{
		UserToken: installation.User.Token,
	}
	if installation.Bot != nil {
		result.BotToken = installation.Bot.Token
		result.BotID = installation.Bot.ID
		result.BotUserID = installation.Bot.UserID
	}
	if installation.Team != nil {
		result.TeamID = installation.Team.ID
	}
	if installation.Enterprise != nil {
		result.EnterpriseID = installation.Enterprise.ID
	}
	if result.BotToken == "" && result.UserToken == "" {
		return AuthorizeResult{}, fmt.Errorf("%w: installation carries no usable token", ErrAuthorization)
	}
	return result, nil
}

// FetchInstallation returns the full stored installation for a query.
func (ins *Installer) FetchInstallation(ctx context.Context, query InstallQuery) (Installation, error) {
	if ins == nil {
		return Installation{}, fmt.Errorf("core: installer is not configured")
	}
	startedAt := ins.now()
	fields := queryFields(query)

	if err := query.Validate(); err != nil {
		ins.observeOperation(ctx, startedAt, "fetch_installation", err, fields)
		return Installation{}, ins.mapError(err)
	}
	installation, err := ins.installationStore.Fetch(ctx, query)
	ins.observeOperation(ctx, startedAt, "fetch_installation", err, fields)
	if err != nil {
		return Installation{}, ins.mapError(err)
	}
	return installation, nil
}

// DeleteInstallation removes stored credentials, the flow that backs external
// revocation events (app uninstalled, tokens revoked).
func (ins *Installer) DeleteInstallation(ctx context.Context, query InstallQuery) error {
	if ins == nil {
		return fmt.Errorf("core: installer is not configured")
	}
	startedAt := ins.now()
	fields := queryFields(query)

	if err := query.Validate(); err != nil {
		ins.observeOperation(ctx, startedAt, "delete_installation", err, fields)
		return ins.mapError(err)
	}
	err := ins.installationStore.Delete(ctx, query)
	ins.observeOperation(ctx, startedAt, "delete_installation", err, fields)
	if err != nil {
		return ins.mapError(err)
	}
	return nil
}

func queryFields(query InstallQuery) map[string]any {
	return map[string]any{
		"team_id":       query.TeamID,
		"enterprise_id": query.EnterpriseID,
		"user_id":       query.UserID,
	}
}
