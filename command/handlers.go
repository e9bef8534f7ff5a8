package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-install/core"
)

type MutatingService interface {
	GenerateInstallURL(ctx context.Context, options core.InstallURLOptions, verifyState bool) (string, error)
	DeleteInstallation(ctx context.Context, query core.InstallQuery) error
}

type GenerateInstallURLCommand struct {
	service MutatingService
}

func NewGenerateInstallURLCommand(service MutatingService) *GenerateInstallURLCommand {
	return &GenerateInstallURLCommand{service: service}
}

func (c *GenerateInstallURLCommand) Execute(ctx context.Context, msg GenerateInstallURLMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: install url service is required")
	}
	out, err := c.service.GenerateInstallURL(ctx, msg.Options, msg.VerifyState)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteInstallationCommand struct {
	service MutatingService
}

func NewDeleteInstallationCommand(service MutatingService) *DeleteInstallationCommand {
	return &DeleteInstallationCommand{service: service}
}

func (c *DeleteInstallationCommand) Execute(ctx context.Context, msg DeleteInstallationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: installation service is required")
	}
	return c.service.DeleteInstallation(ctx, msg.Query)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
