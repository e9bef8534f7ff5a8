package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-install/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type installationRecord struct {
	bun.BaseModel `bun:"table:install_installations,alias:ii"`

	ID                  string    `bun:"id,pk"`
	EnterpriseID        string    `bun:"enterprise_id,notnull"`
	TeamID              string    `bun:"team_id,notnull"`
	UserID              string    `bun:"user_id,notnull"`
	IsEnterpriseInstall bool      `bun:"is_enterprise_install,notnull"`
	AppID               string    `bun:"app_id"`
	TokenType           string    `bun:"token_type"`
	Payload             []byte    `bun:"payload,type:jsonb,notnull"`
	InstalledAt         time.Time `bun:"installed_at,nullzero,notnull,default:current_timestamp"`
	CreatedAt           time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *installationRecord) toDomain() (core.Installation, error) {
	if r == nil {
		return core.Installation{}, fmt.Errorf("sqlstore: installation record is nil")
	}
	var installation core.Installation
	if err := json.Unmarshal(r.Payload, &installation); err != nil {
		return core.Installation{}, fmt.Errorf("sqlstore: decode installation payload: %w", err)
	}
	return installation, nil
}

func encodeInstallation(installation core.Installation) ([]byte, error) {
	payload, err := json.Marshal(installation)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode installation payload: %w", err)
	}
	return payload, nil
}

type stateRecord struct {
	bun.BaseModel `bun:"table:install_states,alias:ist"`

	State     string    `bun:"state,pk"`
	Options   []byte    `bun:"options,type:jsonb,notnull"`
	IssuedAt  time.Time `bun:"issued_at,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
