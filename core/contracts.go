package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// StateStore issues and verifies the CSRF state carried through the
// authorization redirect. Generate binds the install options to an opaque
// token; Verify checks the token against the clock and returns the bound
// options. Implementations decide whether tokens are stateless (signed) or
// centralized (memory, SQL); centralized stores consume tokens on Verify.
type StateStore interface {
	Generate(ctx context.Context, options InstallURLOptions, issuedAt time.Time) (string, error)
	Verify(ctx context.Context, now time.Time, state string) (InstallURLOptions, error)
}

// InstallationStore persists completed installations. Fetch resolves the
// user-scoped record when the query carries a user id and falls back to the
// workspace's latest bot record.
type InstallationStore interface {
	Store(ctx context.Context, installation Installation) error
	Fetch(ctx context.Context, query InstallQuery) (Installation, error)
	Delete(ctx context.Context, query InstallQuery) error
}

type ExchangeRequest struct {
	Code        string
	RedirectURI string
}

type ExchangeTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ExchangeAuthedUser struct {
	ID           string `json:"id"`
	Scope        string `json:"scope"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type ExchangeLegacyBot struct {
	BotUserID      string `json:"bot_user_id"`
	BotAccessToken string `json:"bot_access_token"`
}

type ExchangeIncomingWebhook struct {
	URL              string `json:"url"`
	Channel          string `json:"channel"`
	ChannelID        string `json:"channel_id"`
	ConfigurationURL string `json:"configuration_url"`
}

// ExchangeResponse is the union of the v1 and v2 token responses. The v1 flow
// populates the flat team/user fields and the nested legacy bot; the v2 flow
// populates the bot token at the top level plus the authed user block.
type ExchangeResponse struct {
	OK                  bool                     `json:"ok"`
	Error               string                   `json:"error"`
	AccessToken         string                   `json:"access_token"`
	TokenType           string                   `json:"token_type"`
	Scope               string                   `json:"scope"`
	BotUserID           string                   `json:"bot_user_id"`
	BotID               string                   `json:"bot_id"`
	AppID               string                   `json:"app_id"`
	Team                *ExchangeTeam            `json:"team"`
	Enterprise          *ExchangeTeam            `json:"enterprise"`
	AuthedUser          *ExchangeAuthedUser      `json:"authed_user"`
	RefreshToken        string                   `json:"refresh_token"`
	ExpiresIn           int64                    `json:"expires_in"`
	IsEnterpriseInstall bool                     `json:"is_enterprise_install"`
	IncomingWebhook     *ExchangeIncomingWebhook `json:"incoming_webhook"`

	// v1 flat fields.
	TeamID       string             `json:"team_id"`
	TeamName     string             `json:"team_name"`
	EnterpriseID string             `json:"enterprise_id"`
	UserID       string             `json:"user_id"`
	Bot          *ExchangeLegacyBot `json:"bot"`
}

// TokenExchangeClient redeems a callback code for tokens at the authorization
// server. The default implementation posts form-encoded credentials to the
// version's exchange endpoint.
type TokenExchangeClient interface {
	Exchange(ctx context.Context, req ExchangeRequest) (ExchangeResponse, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// InstallPathOptions configures the install-path handler. BeforeRedirection
// runs before the redirect is written; returning false stops the handler,
// leaving the response exactly as the hook wrote it. Headers the hook sets
// are preserved alongside the state cookie.
type InstallPathOptions struct {
	BeforeRedirection func(w http.ResponseWriter, r *http.Request) (bool, error)
}

// CallbackOptions configures the callback handler. The gating hooks
// (BeforeInstallation, AfterInstallation) stop the pipeline when they return
// false. On success the handler runs Success then PostSuccess; on failure it
// runs Failure then PostFailure with the mapped error. All hooks complete
// before the handler returns, and the handler never writes a response body
// itself.
type CallbackOptions struct {
	BeforeInstallation func(ctx context.Context, options InstallURLOptions, w http.ResponseWriter, r *http.Request) (bool, error)
	AfterInstallation  func(ctx context.Context, installation Installation, options InstallURLOptions, w http.ResponseWriter, r *http.Request) (bool, error)
	Success            func(ctx context.Context, installation Installation, options InstallURLOptions, w http.ResponseWriter, r *http.Request)
	PostSuccess        func(ctx context.Context, installation Installation, options InstallURLOptions, w http.ResponseWriter, r *http.Request)
	Failure            func(ctx context.Context, err error, options InstallURLOptions, w http.ResponseWriter, r *http.Request)
	PostFailure        func(ctx context.Context, err error, options InstallURLOptions, w http.ResponseWriter, r *http.Request)
}

// StoreProvider is implemented by repository factories that hand back the
// installer's persistence stores.
type StoreProvider interface {
	InstallationStore() InstallationStore
	StateStore() StateStore
}

// RepositoryStoreFactory builds stores from a persistence client at
// construction time.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
