package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[GenerateInstallURLMessage] = (*GenerateInstallURLCommand)(nil)
	_ gocmd.Commander[DeleteInstallationMessage] = (*DeleteInstallationCommand)(nil)
)
