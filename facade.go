package install

import (
	"fmt"

	installcommand "github.com/goliatone/go-install/command"
	installquery "github.com/goliatone/go-install/query"
)

// CommandQueryService is the surface the facade dispatches against. The core
// Installer satisfies it.
type CommandQueryService interface {
	installcommand.MutatingService
	installquery.Authorizer
	installquery.InstallationReader
}

type Commands struct {
	GenerateInstallURL *installcommand.GenerateInstallURLCommand
	DeleteInstallation *installcommand.DeleteInstallationCommand
}

type Queries struct {
	Authorize       *installquery.AuthorizeQuery
	GetInstallation *installquery.GetInstallationQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("install: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		GenerateInstallURL: installcommand.NewGenerateInstallURLCommand(service),
		DeleteInstallation: installcommand.NewDeleteInstallationCommand(service),
	}
	facade.queries = Queries{
		Authorize:       installquery.NewAuthorizeQuery(service),
		GetInstallation: installquery.NewGetInstallationQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
