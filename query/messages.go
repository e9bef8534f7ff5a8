package query

import (
	"fmt"

	"github.com/goliatone/go-install/core"
)

const (
	TypeAuthorize       = "install.query.authorize"
	TypeGetInstallation = "install.query.installation.get"
)

type AuthorizeMessage struct {
	Query core.InstallQuery
}

func (AuthorizeMessage) Type() string { return TypeAuthorize }

func (m AuthorizeMessage) Validate() error {
	if err := m.Query.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

type GetInstallationMessage struct {
	Query core.InstallQuery
}

func (GetInstallationMessage) Type() string { return TypeGetInstallation }

func (m GetInstallationMessage) Validate() error {
	if err := m.Query.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}
