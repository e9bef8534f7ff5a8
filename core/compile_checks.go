package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ StateStore          = (*SignedStateStore)(nil)
	_ StateStore          = (*MemoryStateStore)(nil)
	_ InstallationStore   = (*MemoryInstallationStore)(nil)
	_ TokenExchangeClient = (*HTTPExchangeClient)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
