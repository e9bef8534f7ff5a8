package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Installer coordinates the install flow: it produces authorization URLs,
// drives the callback state machine, and resolves stored installations.
type Installer struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	stateStore        StateStore
	installationStore InstallationStore
	exchangeClient    TokenExchangeClient
	now               func() time.Time
}

type InstallerDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	StateStore        StateStore
	InstallationStore InstallationStore
	ExchangeClient    TokenExchangeClient
}

func New(cfg Config, options ...Option) (*Installer, error) {
	builder := defaultInstallerBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("install", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("install"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if strings.TrimSpace(finalConfig.ClientID) == "" {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("%w: client_id is required", ErrConfigInvalid))
	}
	if strings.TrimSpace(finalConfig.ClientSecret) == "" {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("%w: client_secret is required", ErrConfigInvalid))
	}

	if (builder.installationStore == nil || builder.stateStore == nil) && builder.repositoryFactory != nil {
		var storeProvider StoreProvider
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			storeProvider = built
		} else if typed, ok := builder.repositoryFactory.(StoreProvider); ok {
			storeProvider = typed
		}
		if storeProvider != nil {
			if builder.installationStore == nil {
				builder.installationStore = storeProvider.InstallationStore()
			}
			if builder.stateStore == nil {
				builder.stateStore = storeProvider.StateStore()
			}
		}
	}

	if builder.stateStore == nil && finalConfig.stateVerificationEnabled() {
		if strings.TrimSpace(finalConfig.State.Secret) == "" {
			return nil, mapBuildError(builder.errorMapper, fmt.Errorf("%w: state.secret is required when state verification is enabled", ErrConfigInvalid))
		}
		signed, signedErr := NewSignedStateStore(finalConfig.State.Secret, finalConfig.State.TTL())
		if signedErr != nil {
			return nil, mapBuildError(builder.errorMapper, signedErr)
		}
		builder.stateStore = signed
	}
	if builder.installationStore == nil {
		builder.installationStore = NewMemoryInstallationStore()
	}
	if builder.exchangeClient == nil {
		builder.exchangeClient = NewHTTPExchangeClient(ExchangeClientConfig{
			Version:      finalConfig.AuthVersion,
			BaseURL:      finalConfig.AuthorizeBaseURL,
			ClientID:     finalConfig.ClientID,
			ClientSecret: finalConfig.ClientSecret,
			HTTPClient:   builder.httpClient,
		})
	}

	return &Installer{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		stateStore:        builder.stateStore,
		installationStore: builder.installationStore,
		exchangeClient:    builder.exchangeClient,
		now:               builder.now,
	}, nil
}

func (ins *Installer) Config() Config {
	if ins == nil {
		return Config{}
	}
	return ins.config
}

func (ins *Installer) Dependencies() InstallerDependencies {
	if ins == nil {
		return InstallerDependencies{}
	}
	return InstallerDependencies{
		Logger:            ins.logger,
		LoggerProvider:    ins.loggerProvider,
		MetricsRecorder:   ins.metricsRecorder,
		ErrorFactory:      ins.errorFactory,
		ErrorMapper:       ins.errorMapper,
		ConfigProvider:    ins.configProvider,
		OptionsResolver:   ins.optionsResolver,
		StateStore:        ins.stateStore,
		InstallationStore: ins.installationStore,
		ExchangeClient:    ins.exchangeClient,
	}
}

func (ins *Installer) mapError(err error) error {
	if err == nil {
		return nil
	}
	if ins == nil || ins.errorMapper == nil {
		return err
	}
	mapped := ins.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
