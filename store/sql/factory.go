package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-install/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory wires the SQL-backed stores from a persistence client or
// a raw bun DB. It satisfies core.RepositoryStoreFactory so it can be handed
// to core.New via WithRepositoryFactory.
type RepositoryFactory struct {
	db       *bun.DB
	stateTTL time.Duration

	installationStore *InstallationStore
	stateStore        *StateStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

// WithStateTTL overrides the validity window of SQL-backed states.
func (f *RepositoryFactory) WithStateTTL(ttl time.Duration) *RepositoryFactory {
	if f != nil {
		f.stateTTL = ttl
	}
	return f
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.installationStore != nil && f.stateStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) initStores() error {
	if f.installationStore == nil {
		store, err := NewInstallationStore(f.db)
		if err != nil {
			return err
		}
		f.installationStore = store
	}
	if f.stateStore == nil {
		store, err := NewStateStore(f.db, f.stateTTL)
		if err != nil {
			return err
		}
		f.stateStore = store
	}
	return nil
}

func (f *RepositoryFactory) InstallationStore() core.InstallationStore {
	if f == nil || f.installationStore == nil {
		return nil
	}
	return f.installationStore
}

func (f *RepositoryFactory) StateStore() core.StateStore {
	if f == nil || f.stateStore == nil {
		return nil
	}
	return f.stateStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var (
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
)
