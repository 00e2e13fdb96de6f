// Package modkit provides module wiring and core deps
package modkit

import (
	"hush/internal/modkit/repokit"
	"hush/internal/platform/config"
	"hush/internal/platform/kv"
	"hush/internal/platform/logger"
	"hush/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
	KV  kv.Store

	// Notify is the push seam for board change notifications, nil when the
	// postgres backend is disabled
	Notify store.Notifier
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
