package core

import (
	"fmt"
	"strings"
	"time"
)

// AuthVersion selects the authorization protocol variant. The set is closed:
// v1 is the legacy single-token flow, v2 the granular bot/user token flow.
type AuthVersion string

const (
	AuthVersionV1 AuthVersion = "v1"
	AuthVersionV2 AuthVersion = "v2"
)

func (v AuthVersion) Validate() error {
	switch v {
	case AuthVersionV1, AuthVersionV2:
		return nil
	default:
		return fmt.Errorf("core: auth version %q is not supported", string(v))
	}
}

// InstallURLOptions parameterizes a single authorization round trip. The same
// value that produced the install URL travels through the state token and is
// handed back to callback hooks once the state verifies.
type InstallURLOptions struct {
	Scopes      []string `json:"scopes" koanf:"scopes" mapstructure:"scopes"`
	UserScopes  []string `json:"user_scopes,omitempty" koanf:"user_scopes" mapstructure:"user_scopes"`
	TeamID      string   `json:"team_id,omitempty" koanf:"team_id" mapstructure:"team_id"`
	RedirectURI string   `json:"redirect_uri,omitempty" koanf:"redirect_uri" mapstructure:"redirect_uri"`
	Metadata    string   `json:"metadata,omitempty" koanf:"metadata" mapstructure:"metadata"`
}

func (o InstallURLOptions) Validate() error {
	if len(normalizeScopes(o.Scopes)) == 0 {
		return fmt.Errorf("core: install url options: %w", ErrEmptyScopes)
	}
	return nil
}

type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type EnterpriseRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type BotCredential struct {
	ID           string     `json:"id,omitempty"`
	UserID       string     `json:"user_id"`
	Token        string     `json:"token"`
	Scopes       []string   `json:"scopes,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type UserCredential struct {
	ID           string     `json:"id"`
	Token        string     `json:"token,omitempty"`
	Scopes       []string   `json:"scopes,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type IncomingWebhook struct {
	URL              string `json:"url,omitempty"`
	Channel          string `json:"channel,omitempty"`
	ChannelID        string `json:"channel_id,omitempty"`
	ConfigurationURL string `json:"configuration_url,omitempty"`
}

// Installation is the durable outcome of a completed install flow. The
// workspace key is Enterprise.ID for org-wide installs, Team.ID otherwise,
// with User.ID narrowing user-scoped lookups.
type Installation struct {
	Team                *TeamRef         `json:"team,omitempty"`
	Enterprise          *EnterpriseRef   `json:"enterprise,omitempty"`
	Bot                 *BotCredential   `json:"bot,omitempty"`
	User                UserCredential   `json:"user"`
	IncomingWebhook     *IncomingWebhook `json:"incoming_webhook,omitempty"`
	AppID               string           `json:"app_id,omitempty"`
	TokenType           string           `json:"token_type,omitempty"`
	IsEnterpriseInstall bool             `json:"is_enterprise_install,omitempty"`
	InstalledAt         time.Time        `json:"installed_at"`
}

func (i Installation) Validate() error {
	if i.IsEnterpriseInstall {
		if i.Enterprise == nil || strings.TrimSpace(i.Enterprise.ID) == "" {
			return fmt.Errorf("core: enterprise install requires an enterprise id")
		}
		return nil
	}
	if i.Team == nil || strings.TrimSpace(i.Team.ID) == "" {
		return fmt.Errorf("core: installation requires a team id")
	}
	return nil
}

// Query derives the lookup key addressing this installation.
func (i Installation) Query() InstallQuery {
	query := InstallQuery{
		UserID:              i.User.ID,
		IsEnterpriseInstall: i.IsEnterpriseInstall,
	}
	if i.Team != nil {
		query.TeamID = i.Team.ID
	}
	if i.Enterprise != nil {
		query.EnterpriseID = i.Enterprise.ID
	}
	return query
}

// InstallQuery addresses installations in a store. TeamID or EnterpriseID is
// required; UserID narrows the lookup to a user-scoped record.
type InstallQuery struct {
	TeamID              string `json:"team_id,omitempty"`
	EnterpriseID        string `json:"enterprise_id,omitempty"`
	UserID              string `json:"user_id,omitempty"`
	IsEnterpriseInstall bool   `json:"is_enterprise_install,omitempty"`
}

func (q InstallQuery) Validate() error {
	if strings.TrimSpace(q.TeamID) == "" && strings.TrimSpace(q.EnterpriseID) == "" {
		return fmt.Errorf("core: install query requires a team id or an enterprise id")
	}
	return nil
}

// AuthorizeResult is the minimal credential view handed to request processing.
type AuthorizeResult struct {
	BotToken     string `json:"bot_token,omitempty"`
	BotID        string `json:"bot_id,omitempty"`
	BotUserID    string `json:"bot_user_id,omitempty"`
	UserToken    string `json:"user_token,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
	EnterpriseID string `json:"enterprise_id,omitempty"`
}

func normalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		out = append(out, scope)
	}
	return out
}

func splitScopes(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	return normalizeScopes(strings.Split(joined, ","))
}

func cloneInstallURLOptions(options InstallURLOptions) InstallURLOptions {
	cloned := options
	cloned.Scopes = append([]string(nil), options.Scopes...)
	cloned.UserScopes = append([]string(nil), options.UserScopes...)
	return cloned
}

func cloneInstallation(installation Installation) Installation {
	cloned := installation
	if installation.Team != nil {
		team := *installation.Team
		cloned.Team = &team
	}
	if installation.Enterprise != nil {
		enterprise := *installation.Enterprise
		cloned.Enterprise = &enterprise
	}
	if installation.Bot != nil {
		bot := *installation.Bot
		bot.Scopes = append([]string(nil), installation.Bot.Scopes...)
		bot.ExpiresAt = cloneTimePointer(installation.Bot.ExpiresAt)
		cloned.Bot = &bot
	}
	cloned.User.Scopes = append([]string(nil), installation.User.Scopes...)
	cloned.User.ExpiresAt = cloneTimePointer(installation.User.ExpiresAt)
	if installation.IncomingWebhook != nil {
		webhook := *installation.IncomingWebhook
		cloned.IncomingWebhook = &webhook
	}
	return cloned
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
