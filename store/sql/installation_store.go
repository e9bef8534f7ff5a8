package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-install/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// InstallationStore persists installations in SQL. Each Store upserts two
// rows under the workspace key: the user-scoped record and the workspace's
// latest bot record (user_id empty), mirroring the lookup contract of
// core.InstallationStore.
type InstallationStore struct {
	db   *bun.DB
	repo repository.Repository[*installationRecord]
}

func NewInstallationStore(db *bun.DB) (*InstallationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*installationRecord](db, installationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid installation repository wiring: %w", err)
		}
	}
	return &InstallationStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *InstallationStore) Store(ctx context.Context, installation core.Installation) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: installation store is not configured")
	}
	if err := installation.Validate(); err != nil {
		return err
	}
	query := installation.Query()
	enterpriseID, teamID := installationScope(query)
	payload, err := encodeInstallation(installation)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := upsertInstallationTx(ctx, tx, enterpriseID, teamID, "", installation, payload, now); err != nil {
			return err
		}
		if userID := strings.TrimSpace(query.UserID); userID != "" {
			return upsertInstallationTx(ctx, tx, enterpriseID, teamID, userID, installation, payload, now)
		}
		return nil
	})
}

func (s *InstallationStore) Fetch(ctx context.Context, query core.InstallQuery) (core.Installation, error) {
	if s == nil || s.db == nil {
		return core.Installation{}, fmt.Errorf("sqlstore: installation store is not configured")
	}
	if err := query.Validate(); err != nil {
		return core.Installation{}, err
	}
	enterpriseID, teamID := installationScope(query)

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		record, err := findInstallation(ctx, s.db, enterpriseID, teamID, userID)
		if err != nil {
			return core.Installation{}, err
		}
		if record != nil {
			return record.toDomain()
		}
	}
	record, err := findInstallation(ctx, s.db, enterpriseID, teamID, "")
	if err != nil {
		return core.Installation{}, err
	}
	if record == nil {
		return core.Installation{}, core.ErrInstallationNotFound
	}
	return record.toDomain()
}

func (s *InstallationStore) Delete(ctx context.Context, query core.InstallQuery) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: installation store is not configured")
	}
	if err := query.Validate(); err != nil {
		return err
	}
	enterpriseID, teamID := installationScope(query)

	deletion := s.db.NewDelete().
		Model((*installationRecord)(nil)).
		Where("enterprise_id = ?", enterpriseID).
		Where("team_id = ?", teamID)
	if userID := strings.TrimSpace(query.UserID); userID != "" {
		deletion = deletion.Where("user_id = ?", userID)
	}
	_, err := deletion.Exec(ctx)
	return err
}

// Get resolves a single record by its row id.
func (s *InstallationStore) Get(ctx context.Context, id string) (core.Installation, error) {
	if s == nil || s.repo == nil {
		return core.Installation{}, fmt.Errorf("sqlstore: installation store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.Installation{}, err
	}
	return record.toDomain()
}

// ListByWorkspace returns every record addressed by the workspace key, the
// bot record first followed by user-scoped records.
func (s *InstallationStore) ListByWorkspace(ctx context.Context, query core.InstallQuery) ([]core.Installation, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: installation store is not configured")
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	enterpriseID, teamID := installationScope(query)

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("enterprise_id", "=", enterpriseID),
		repository.SelectBy("team_id", "=", teamID),
		repository.OrderBy("user_id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Installation, 0, len(records))
	for _, record := range records {
		installation, decodeErr := record.toDomain()
		if decodeErr != nil {
			return nil, decodeErr
		}
		out = append(out, installation)
	}
	return out, nil
}

func upsertInstallationTx(
	ctx context.Context,
	tx bun.Tx,
	enterpriseID string,
	teamID string,
	userID string,
	installation core.Installation,
	payload []byte,
	now time.Time,
) error {
	record, err := findInstallationTx(ctx, tx, enterpriseID, teamID, userID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &installationRecord{
			ID:                  uuid.NewString(),
			EnterpriseID:        enterpriseID,
			TeamID:              teamID,
			UserID:              userID,
			IsEnterpriseInstall: installation.IsEnterpriseInstall,
			AppID:               installation.AppID,
			TokenType:           installation.TokenType,
			Payload:             payload,
			InstalledAt:         installation.InstalledAt.UTC(),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
		return insertErr
	}

	record.IsEnterpriseInstall = installation.IsEnterpriseInstall
	record.AppID = installation.AppID
	record.TokenType = installation.TokenType
	record.Payload = payload
	record.InstalledAt = installation.InstalledAt.UTC()
	record.UpdatedAt = now
	_, updateErr := tx.NewUpdate().
		Model(record).
		Where("id = ?", record.ID).
		Exec(ctx)
	return updateErr
}

func findInstallationTx(ctx context.Context, tx bun.Tx, enterpriseID, teamID, userID string) (*installationRecord, error) {
	return scanInstallation(ctx, tx, enterpriseID, teamID, userID)
}

func findInstallation(ctx context.Context, db *bun.DB, enterpriseID, teamID, userID string) (*installationRecord, error) {
	return scanInstallation(ctx, db, enterpriseID, teamID, userID)
}

func scanInstallation(ctx context.Context, db bun.IDB, enterpriseID, teamID, userID string) (*installationRecord, error) {
	record := &installationRecord{}
	err := db.NewSelect().
		Model(record).
		Where("enterprise_id = ?", enterpriseID).
		Where("team_id = ?", teamID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// installationScope mirrors the workspace key rule of the core stores:
// enterprise-wide installs are addressed by enterprise alone.
func installationScope(query core.InstallQuery) (string, string) {
	enterpriseID := strings.TrimSpace(query.EnterpriseID)
	teamID := strings.TrimSpace(query.TeamID)
	if query.IsEnterpriseInstall && enterpriseID != "" {
		return enterpriseID, ""
	}
	return enterpriseID, teamID
}

var _ core.InstallationStore = (*InstallationStore)(nil)
