// Package core contains the install-flow domain: authorization URL
// generation, the callback state machine, state and installation stores, and
// the installer orchestration. Storage adapters depend on this package; core
// must not depend on storage or transport specifics.
package core
