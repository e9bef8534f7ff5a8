package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/goliatone/go-install/core"
	installmigrations "github.com/goliatone/go-install/migrations"
	sqlstore "github.com/goliatone/go-install/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-install-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:install-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = installmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != installmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, installmigrations.WithValidationTargets(installmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newTestFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, cleanup
}

func testInstallation(teamID, userID string) core.Installation {
	return core.Installation{
		Team: &core.TeamRef{ID: teamID, Name: "workspace"},
		Bot: &core.BotCredential{
			ID:     "B1",
			UserID: "U_BOT",
			Token:  "xoxb-" + teamID + "-" + userID,
			Scopes: []string{"chat:write"},
		},
		User: core.UserCredential{
			ID:    userID,
			Token: "xoxp-" + userID,
		},
		AppID:       "A1",
		TokenType:   "bot",
		InstalledAt: time.Now().UTC(),
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"install_installations", "install_states"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master: %v", err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestInstallationStore_StoreAndFetch(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	store := factory.InstallationStore()
	if store == nil {
		t.Fatalf("expected installation store from factory")
	}

	if err := store.Store(ctx, testInstallation("T1", "U1")); err != nil {
		t.Fatalf("store installation: %v", err)
	}

	fetched, err := store.Fetch(ctx, core.InstallQuery{TeamID: "T1", UserID: "U1"})
	if err != nil {
		t.Fatalf("fetch installation: %v", err)
	}
	if fetched.User.Token != "xoxp-U1" {
		t.Fatalf("expected user record, got %+v", fetched.User)
	}
	if fetched.Bot == nil || fetched.Bot.Token != "xoxb-T1-U1" {
		t.Fatalf("expected bot credential, got %+v", fetched.Bot)
	}
}

func TestInstallationStore_UnknownUserFallsBackToLatestBot(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	store := factory.InstallationStore()
	if err := store.Store(ctx, testInstallation("T1", "U1")); err != nil {
		t.Fatalf("store first installation: %v", err)
	}
	if err := store.Store(ctx, testInstallation("T1", "U2")); err != nil {
		t.Fatalf("store second installation: %v", err)
	}

	fetched, err := store.Fetch(ctx, core.InstallQuery{TeamID: "T1", UserID: "U_UNKNOWN"})
	if err != nil {
		t.Fatalf("fetch with unknown user: %v", err)
	}
	if fetched.Bot == nil || fetched.Bot.Token != "xoxb-T1-U2" {
		t.Fatalf("expected latest bot record, got %+v", fetched.Bot)
	}
}

func TestInstallationStore_MissingWorkspace(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	_, err := factory.InstallationStore().Fetch(ctx, core.InstallQuery{TeamID: "T_MISSING"})
	if !errors.Is(err, core.ErrInstallationNotFound) {
		t.Fatalf("expected ErrInstallationNotFound, got %v", err)
	}
}

func TestInstallationStore_UpsertKeepsSingleRowPerKey(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	store := factory.InstallationStore()
	if err := store.Store(ctx, testInstallation("T1", "U1")); err != nil {
		t.Fatalf("store installation: %v", err)
	}
	updated := testInstallation("T1", "U1")
	updated.Bot.Token = "xoxb-rotated"
	if err := store.Store(ctx, updated); err != nil {
		t.Fatalf("store updated installation: %v", err)
	}

	var count int
	if err := factory.DB().NewRaw(
		"SELECT COUNT(*) FROM install_installations WHERE team_id = ?", "T1",
	).Scan(ctx, &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected bot row plus one user row, got %d", count)
	}

	fetched, err := store.Fetch(ctx, core.InstallQuery{TeamID: "T1"})
	if err != nil {
		t.Fatalf("fetch installation: %v", err)
	}
	if fetched.Bot == nil || fetched.Bot.Token != "xoxb-rotated" {
		t.Fatalf("expected rotated bot token, got %+v", fetched.Bot)
	}
}

func TestInstallationStore_DeleteWorkspaceRemovesAllRecords(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	store := factory.InstallationStore()
	if err := store.Store(ctx, testInstallation("T1", "U1")); err != nil {
		t.Fatalf("store installation: %v", err)
	}
	if err := store.Delete(ctx, core.InstallQuery{TeamID: "T1"}); err != nil {
		t.Fatalf("delete workspace: %v", err)
	}
	if _, err := store.Fetch(ctx, core.InstallQuery{TeamID: "T1", UserID: "U1"}); !errors.Is(err, core.ErrInstallationNotFound) {
		t.Fatalf("expected user record gone with workspace, got %v", err)
	}
}

func TestInstallationStore_EnterpriseInstallKeyedByEnterprise(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	installation := testInstallation("T1", "U1")
	installation.Enterprise = &core.EnterpriseRef{ID: "E1"}
	installation.IsEnterpriseInstall = true

	store := factory.InstallationStore()
	if err := store.Store(ctx, installation); err != nil {
		t.Fatalf("store enterprise installation: %v", err)
	}

	fetched, err := store.Fetch(ctx, core.InstallQuery{
		EnterpriseID:        "E1",
		TeamID:              "T_OTHER",
		IsEnterpriseInstall: true,
	})
	if err != nil {
		t.Fatalf("fetch enterprise installation: %v", err)
	}
	if fetched.Enterprise == nil || fetched.Enterprise.ID != "E1" {
		t.Fatalf("expected org-wide record, got %+v", fetched)
	}
}

func TestStateStore_GenerateAndVerify(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	store := factory.StateStore()
	if store == nil {
		t.Fatalf("expected state store from factory")
	}
	options := core.InstallURLOptions{
		Scopes:      []string{"channels:read"},
		TeamID:      "T1",
		RedirectURI: "https://example.com/callback",
	}
	now := time.Now().UTC()

	state, err := store.Generate(ctx, options, now)
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	verified, err := store.Verify(ctx, now.Add(time.Second), state)
	if err != nil {
		t.Fatalf("verify state: %v", err)
	}
	if verified.TeamID != "T1" || len(verified.Scopes) != 1 {
		t.Fatalf("expected bound options back, got %+v", verified)
	}

	if _, err := store.Verify(ctx, now.Add(2*time.Second), state); !errors.Is(err, core.ErrStateInvalid) {
		t.Fatalf("expected consume-once semantics, got %v", err)
	}
}

func TestStateStore_ExpiredStateRejectedAndPruned(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewStateStore(client.DB(), time.Minute)
	if err != nil {
		t.Fatalf("new state store: %v", err)
	}
	issuedAt := time.Now().UTC().Add(-5 * time.Minute)

	state, err := store.Generate(ctx, core.InstallURLOptions{Scopes: []string{"a"}}, issuedAt)
	if err != nil {
		t.Fatalf("generate stale state: %v", err)
	}
	if _, err := store.Verify(ctx, time.Now().UTC(), state); !errors.Is(err, core.ErrStateExpired) {
		t.Fatalf("expected ErrStateExpired, got %v", err)
	}

	// A later Generate prunes anything already past its expiry.
	if _, err := store.Generate(ctx, core.InstallURLOptions{Scopes: []string{"a"}}, time.Now().UTC()); err != nil {
		t.Fatalf("generate fresh state: %v", err)
	}
	var count int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM install_states WHERE expires_at < ?", time.Now().UTC(),
	).Scan(ctx, &count); err != nil {
		t.Fatalf("count stale rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected stale rows pruned, got %d", count)
	}
}

func TestRepositoryFactory_ResolvesFromRawDB(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory from db: %v", err)
	}
	if factory.InstallationStore() == nil || factory.StateStore() == nil {
		t.Fatalf("expected stores from raw db factory")
	}
}
