package command

import (
	"fmt"

	"github.com/goliatone/go-install/core"
)

const (
	TypeGenerateInstallURL = "install.command.url.generate"
	TypeDeleteInstallation = "install.command.installation.delete"
)

type GenerateInstallURLMessage struct {
	Options     core.InstallURLOptions
	VerifyState bool
}

func (GenerateInstallURLMessage) Type() string { return TypeGenerateInstallURL }

func (m GenerateInstallURLMessage) Validate() error {
	if err := m.Options.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type DeleteInstallationMessage struct {
	Query core.InstallQuery
}

func (DeleteInstallationMessage) Type() string { return TypeDeleteInstallation }

func (m DeleteInstallationMessage) Validate() error {
	if err := m.Query.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
