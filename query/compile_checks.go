package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-install/core"
)

var (
	_ gocmd.Querier[AuthorizeMessage, core.AuthorizeResult]    = (*AuthorizeQuery)(nil)
	_ gocmd.Querier[GetInstallationMessage, core.Installation] = (*GetInstallationQuery)(nil)
)
