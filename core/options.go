package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type installerBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	stateStore        StateStore
	installationStore InstallationStore
	exchangeClient    TokenExchangeClient
	httpClient        HTTPDoer
	now               func() time.Time
}

type Option func(*installerBuilder)

func WithLogger(logger Logger) Option {
	return func(b *installerBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *installerBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *installerBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *installerBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *installerBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *installerBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *installerBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *installerBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *installerBuilder) {
		b.optionsResolver = resolver
	}
}

func WithStateStore(store StateStore) Option {
	return func(b *installerBuilder) {
		b.stateStore = store
	}
}

func WithInstallationStore(store InstallationStore) Option {
	return func(b *installerBuilder) {
		b.installationStore = store
	}
}

func WithExchangeClient(client TokenExchangeClient) Option {
	return func(b *installerBuilder) {
		b.exchangeClient = client
	}
}

func WithHTTPClient(client HTTPDoer) Option {
	return func(b *installerBuilder) {
		b.httpClient = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *installerBuilder) {
		b.now = now
	}
}

func defaultInstallerBuilder(runtime Config) installerBuilder {
	loggerProvider, logger := glog.Resolve("install", nil, nil)
	return installerBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now:             time.Now,
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return installErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.ClientID) != "" {
		layer["client_id"] = cfg.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.ClientSecret) != "" {
		layer["client_secret"] = cfg.ClientSecret
	}
	if includeZero || strings.TrimSpace(string(cfg.AuthVersion)) != "" {
		layer["auth_version"] = string(cfg.AuthVersion)
	}
	if includeZero || strings.TrimSpace(cfg.AuthorizeBaseURL) != "" {
		layer["authorize_base_url"] = cfg.AuthorizeBaseURL
	}
	if includeZero || cfg.DirectInstall {
		layer["direct_install"] = cfg.DirectInstall
	}

	state := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.State.Secret) != "" {
		state["secret"] = cfg.State.Secret
	}
	if includeZero || cfg.State.TTLSeconds > 0 {
		state["ttl_seconds"] = cfg.State.TTLSeconds
	}
	if includeZero || cfg.State.Disable {
		state["disable"] = cfg.State.Disable
	}
	if includeZero || cfg.State.LegacyVerification {
		state["legacy_verification"] = cfg.State.LegacyVerification
	}
	if len(state) > 0 {
		layer["state"] = state
	}

	installOptions := map[string]any{}
	if includeZero || len(cfg.InstallOptions.Scopes) > 0 {
		installOptions["scopes"] = append([]string(nil), cfg.InstallOptions.Scopes...)
	}
	if includeZero || len(cfg.InstallOptions.UserScopes) > 0 {
		installOptions["user_scopes"] = append([]string(nil), cfg.InstallOptions.UserScopes...)
	}
	if includeZero || strings.TrimSpace(cfg.InstallOptions.TeamID) != "" {
		installOptions["team_id"] = cfg.InstallOptions.TeamID
	}
	if includeZero || strings.TrimSpace(cfg.InstallOptions.RedirectURI) != "" {
		installOptions["redirect_uri"] = cfg.InstallOptions.RedirectURI
	}
	if includeZero || strings.TrimSpace(cfg.InstallOptions.Metadata) != "" {
		installOptions["metadata"] = cfg.InstallOptions.Metadata
	}
	if len(installOptions) > 0 {
		layer["install_options"] = installOptions
	}

	return layer
}
