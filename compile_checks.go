package install

import "github.com/goliatone/go-install/core"

var _ CommandQueryService = (*core.Installer)(nil)
