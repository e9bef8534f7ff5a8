package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-install/core"
	"github.com/uptrace/bun"
)

// StateStore keeps issued states in SQL so verification works across
// processes. States are consumed on Verify; expired rows are pruned
// opportunistically on Generate.
type StateStore struct {
	db  *bun.DB
	ttl time.Duration
}

func NewStateStore(db *bun.DB, ttl time.Duration) (*StateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if ttl <= 0 {
		ttl = core.DefaultStateTTL
	}
	return &StateStore{db: db, ttl: ttl}, nil
}

func (s *StateStore) Generate(ctx context.Context, options core.InstallURLOptions, issuedAt time.Time) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: state store is not configured")
	}
	state, err := core.GenerateStateToken()
	if err != nil {
		return "", err
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	issuedAt = issuedAt.UTC()

	payload, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("sqlstore: encode state options: %w", err)
	}
	record := &stateRecord{
		State:     state,
		Options:   payload,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.ttl),
		CreatedAt: issuedAt,
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, pruneErr := tx.NewDelete().
			Model((*stateRecord)(nil)).
			Where("expires_at < ?", issuedAt).
			Exec(ctx); pruneErr != nil {
			return pruneErr
		}
		_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
		return insertErr
	})
	if err != nil {
		return "", err
	}
	return state, nil
}

func (s *StateStore) Verify(ctx context.Context, now time.Time, state string) (core.InstallURLOptions, error) {
	if s == nil || s.db == nil {
		return core.InstallURLOptions{}, fmt.Errorf("sqlstore: state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.InstallURLOptions{}, fmt.Errorf("sqlstore: state is required: %w", core.ErrStateInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}

	var record stateRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if scanErr := tx.NewSelect().
			Model(&record).
			Where("state = ?", state).
			Limit(1).
			Scan(ctx); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return fmt.Errorf("sqlstore: unknown state token: %w", core.ErrStateInvalid)
			}
			return scanErr
		}
		_, deleteErr := tx.NewDelete().
			Model((*stateRecord)(nil)).
			Where("state = ?", state).
			Exec(ctx)
		return deleteErr
	})
	if err != nil {
		return core.InstallURLOptions{}, err
	}

	if now.UTC().After(record.ExpiresAt) {
		return core.InstallURLOptions{}, fmt.Errorf("sqlstore: state issued at %s: %w",
			record.IssuedAt.Format(time.RFC3339), core.ErrStateExpired)
	}
	var options core.InstallURLOptions
	if err := json.Unmarshal(record.Options, &options); err != nil {
		return core.InstallURLOptions{}, fmt.Errorf("sqlstore: decode state options: %w", err)
	}
	return options, nil
}

var _ core.StateStore = (*StateStore)(nil)
