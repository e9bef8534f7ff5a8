package install

import "github.com/goliatone/go-install/core"

type Config = core.Config

type StateConfig = core.StateConfig

type Option = core.Option

type Installer = core.Installer

type InstallerDependencies = core.InstallerDependencies

type AuthVersion = core.AuthVersion

type InstallURLOptions = core.InstallURLOptions
type Installation = core.Installation
type InstallQuery = core.InstallQuery
type AuthorizeResult = core.AuthorizeResult

type InstallPathOptions = core.InstallPathOptions
type CallbackOptions = core.CallbackOptions

type StateStore = core.StateStore
type InstallationStore = core.InstallationStore
type TokenExchangeClient = core.TokenExchangeClient
type StoreProvider = core.StoreProvider
type RepositoryStoreFactory = core.RepositoryStoreFactory

const (
	AuthVersionV1 = core.AuthVersionV1
	AuthVersionV2 = core.AuthVersionV2
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithStateStore        = core.WithStateStore
	WithInstallationStore = core.WithInstallationStore
	WithExchangeClient    = core.WithExchangeClient
	WithHTTPClient        = core.WithHTTPClient
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func New(cfg Config, opts ...Option) (*Installer, error) {
	return core.New(cfg, opts...)
}
